package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches the question bank from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context) ([]domain.Question, error)
}

// QuestionBank caches the loaded bank with a TTL and serves random records
// from it. Concurrent cache misses are collapsed into one load.
type QuestionBank struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu        sync.Mutex
	rnd       *rand.Rand
	cached    []domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader BankLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Random returns one record drawn uniformly from the cached bank, reloading
// it when the TTL has lapsed.
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
	now := b.clock()

	b.mu.Lock()
	if b.cached != nil && b.expiresAt.After(now) {
		bank := b.cached
		b.mu.Unlock()
		return bank, nil
	}
	b.mu.Unlock()

	result, err, _ := b.sf.Do("bank", func() (interface{}, error) {
		now := b.clock()
		b.mu.Lock()
		if b.cached != nil && b.expiresAt.After(now) {
			bank := b.cached
			b.mu.Unlock()
			return bank, nil
		}
		b.mu.Unlock()

		bank, err := b.loader.LoadBank(ctx)
		if err != nil {
			return nil, err
		}

		ttl := b.ttlWithJitter()
		b.mu.Lock()
		b.cached = bank
		b.expiresAt = now.Add(ttl)
		b.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// StaticBankLoader serves a fixed question list (useful for tests/demos).
type StaticBankLoader struct {
	questions []domain.Question
}

func NewStaticBankLoader(questions []domain.Question) *StaticBankLoader {
	return &StaticBankLoader{questions: questions}
}

func (l *StaticBankLoader) LoadBank(_ context.Context) ([]domain.Question, error) {
	if len(l.questions) == 0 {
		return nil, domain.ErrBankNotFound
	}
	return l.questions, nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
