package stt

import (
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
)

func TestJoinResultsConcatenatesSegments(t *testing.T) {
	text, conf := joinResults([]*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " I designed the cache. ", Confidence: 0.9}}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "It cut latency in half.", Confidence: 0.7}}},
	})
	assert.Equal(t, "I designed the cache. It cut latency in half.", text)
	assert.InDelta(t, 0.8, conf, 0.0001)

	text, conf = joinResults(nil)
	assert.Empty(t, text)
	assert.Zero(t, conf)
}

func TestEncodingFor(t *testing.T) {
	assert.Equal(t, speechpb.RecognitionConfig_WEBM_OPUS, encodingFor("audio/webm;codecs=opus"))
	assert.Equal(t, speechpb.RecognitionConfig_LINEAR16, encodingFor("audio/wav"))
	assert.Equal(t, speechpb.RecognitionConfig_FLAC, encodingFor("AUDIO/FLAC"))
	assert.Equal(t, speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, encodingFor("application/octet-stream"))
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "en-US", NormalizeLanguage(""))
	assert.Equal(t, "id-ID", NormalizeLanguage("id"))
	assert.Equal(t, "de-DE", NormalizeLanguage(" de-DE "))
}
