package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/events"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

// ArchiveWorkerPool consumes completed sessions from a Redis stream and copies
// them into Postgres.
type ArchiveWorkerPool struct {
	Redis      *redis.Client
	Archive    services.ArchiveService
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
	MaxAttempts    int64
}

func (p *ArchiveWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Archive == nil {
		return errors.New("ArchiveWorkerPool missing dependency: Redis/Archive must be set")
	}
	if p.Stream == "" {
		p.Stream = events.CompletedStream
	}
	if p.Group == "" {
		p.Group = "archive-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *ArchiveWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// pending first (">" only returns new entries), then new ones
		p.reclaim(ctx, consumer)

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.process(ctx, msg, 1)
			}
		}
	}
}

// reclaim retries entries that stayed pending for more than a minute, e.g.
// because Postgres was down or a consumer died mid-job.
func (p *ArchiveWorkerPool) reclaim(ctx context.Context, consumer string) {
	pending, err := p.Redis.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: p.Stream,
		Group:  p.Group,
		Idle:   time.Minute,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil || len(pending) == 0 {
		return
	}

	for _, pe := range pending {
		msgs, err := p.Redis.XClaim(ctx, &redis.XClaimArgs{
			Stream:   p.Stream,
			Group:    p.Group,
			Consumer: consumer,
			MinIdle:  time.Minute,
			Messages: []string{pe.ID},
		}).Result()
		if err != nil {
			continue
		}
		for _, msg := range msgs {
			p.process(ctx, msg, pe.RetryCount+1)
		}
	}
}

// process acks the entry unless it failed with a retryable error and still
// has attempts left.
func (p *ArchiveWorkerPool) process(ctx context.Context, msg redis.XMessage, attempt int64) {
	err := p.handleMsg(ctx, msg)
	if err != nil && retryable(err) && attempt < p.MaxAttempts {
		return
	}
	_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
}

func (p *ArchiveWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) error {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	sessionID := getStr("session_id")
	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"session_id": sessionID,
		"user_id":    getStr("user_id"),
	})
	if sessionID == "" {
		log.Warn("archive message without session_id dropped")
		return nil
	}

	start := time.Now()
	if err := p.Archive.Archive(ctx, sessionID); err != nil {
		log.WithError(err).Error("archive failed")
		return err
	}
	log.WithField("elapsed_ms", time.Since(start).Milliseconds()).Info("session archived")
	return nil
}

// retryable is false for errors that will not change on retry.
func retryable(err error) bool {
	switch utils.CodeOf(err) {
	case utils.CodeInvalidArgument, utils.CodeNotFound, utils.CodeInvalidTransition:
		return false
	}
	return true
}
