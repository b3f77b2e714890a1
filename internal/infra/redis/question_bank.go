package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const bankKey = "trivia:bank"

// QuestionBank caches the question bank in Redis as a JSON blob and falls
// back to a loader on cache miss. Concurrent misses collapse into one load.
type QuestionBank struct {
	client *redis.Client
	loader memory.BankLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader memory.BankLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Random draws one record uniformly from the cached bank.
func (b *QuestionBank) Random(ctx context.Context) (domain.Question, error) {
	bank, err := b.bank(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	if len(bank) == 0 {
		return domain.Question{}, domain.ErrBankEmpty
	}
	b.mu.Lock()
	i := b.rnd.Intn(len(bank))
	b.mu.Unlock()
	return bank[i], nil
}

func (b *QuestionBank) bank(ctx context.Context) ([]domain.Question, error) {
	if bank, ok := b.cached(ctx); ok {
		return bank, nil
	}

	result, err, _ := b.sf.Do(bankKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := b.cached(ctx); ok {
			return bank, nil
		}

		bank, err := b.loader.LoadBank(ctx)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(bank)
		if err != nil {
			return nil, err
		}
		_ = b.client.Set(ctx, bankKey, data, b.ttlWithJitter()).Err()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) cached(ctx context.Context) ([]domain.Question, bool) {
	data, err := b.client.Get(ctx, bankKey).Bytes()
	if err != nil {
		return nil, false
	}
	var bank []domain.Question
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, false
	}
	return bank, len(bank) > 0
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
