package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/config"
	"github.com/stemsi/eduassess-backend/internal/model"
)

// FeedEventSubmission is the only event type the results feed carries.
const FeedEventSubmission = "submission"

const feedBuffer = 16

// FeedEvent is pushed to educators watching an exam's results.
type FeedEvent struct {
	Type       string           `json:"type"`
	Reason     string           `json:"reason"`
	Percent    float64          `json:"percent"`
	Submission model.Submission `json:"submission"`
	SentAt     time.Time        `json:"sent_at"`
}

// FeedService fans submission events out to results-feed subscribers.
// With Redis every instance sees every event through Pub/Sub; without it
// events stay in process.
type FeedService struct {
	rdb *redis.Client
	log zerolog.Logger

	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

// NewFeedService creates a FeedService. rdb may be nil.
func NewFeedService(rdb *redis.Client, log zerolog.Logger) *FeedService {
	return &FeedService{
		rdb:  rdb,
		log:  log.With().Str("component", "feed_service").Logger(),
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Publish sends ev to subscribers of examID. Failures are logged, never
// returned: the feed is best-effort.
func (s *FeedService) Publish(ctx context.Context, examID string, ev FeedEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode feed event")
		return
	}

	if s.rdb != nil {
		if err := s.rdb.Publish(ctx, config.CacheKey.ExamFeedChannel(examID), raw).Err(); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID).Msg("Feed publish failed")
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[examID] {
		select {
		case ch <- raw:
		default:
			// slow subscriber; drop rather than block finalize
		}
	}
}

// Subscribe streams raw JSON events for examID until ctx is done or the
// returned cancel func is called. The channel is closed afterwards.
func (s *FeedService) Subscribe(ctx context.Context, examID string) (<-chan []byte, func()) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan []byte, feedBuffer)

	if s.rdb != nil {
		pubsub := s.rdb.Subscribe(ctx, config.CacheKey.ExamFeedChannel(examID))
		// wait for the subscription to be acknowledged so no event published
		// after Subscribe returns is missed
		if _, err := pubsub.Receive(ctx); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID).Msg("Feed subscribe failed")
		}
		go func() {
			defer close(out)
			defer pubsub.Close()

			msgs := pubsub.Channel()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-msgs:
					if !ok {
						return
					}
					select {
					case out <- []byte(msg.Payload):
					default:
					}
				}
			}
		}()
		return out, cancel
	}

	s.mu.Lock()
	if s.subs[examID] == nil {
		s.subs[examID] = make(map[chan []byte]struct{})
	}
	s.subs[examID][out] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[examID], out)
		if len(s.subs[examID]) == 0 {
			delete(s.subs, examID)
		}
		close(out)
		s.mu.Unlock()
	}()
	return out, cancel
}
