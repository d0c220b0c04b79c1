package season

import (
	"context"
	"log"
	"sync"
	"time"

	"f1countdown/model"
)

// DefaultLoadInterval is used when a Loader is given a non-positive interval.
const DefaultLoadInterval = 8 * time.Hour

// Fetcher is anything able to produce the current season, usually a *Client.
type Fetcher interface {
	FetchSeason(ctx context.Context) ([]model.RaceWeekend, error)
}

// Loader keeps the current season in memory and refreshes it periodically.
// The last good calendar survives failed reloads.
type Loader struct {
	fetcher      Fetcher
	loadInterval time.Duration

	mu        sync.RWMutex
	weekends  []model.RaceWeekend
	fetchedAt time.Time
	lastErr   error
	running   bool

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewLoader(fetcher Fetcher, interval time.Duration) *Loader {
	if interval <= 0 {
		interval = DefaultLoadInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		fetcher:      fetcher,
		loadInterval: interval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the reload loop. It is a no-op when already running or
// after Stop.
func (s *Loader) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.ctx.Err() != nil {
		return
	}
	s.running = true
	s.wg.Add(1)
	go s.run()
}

// Stop cancels any fetch in flight and waits for the reload loop to exit.
func (s *Loader) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		log.Println("Season loader stopped.")
	})
}

func (s *Loader) run() {
	defer s.wg.Done()

	s.Reload()

	ticker := time.NewTicker(s.loadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Reload()
		case <-s.ctx.Done():
			return
		}
	}
}

// Reload fetches the season once. Results arriving after Stop are dropped.
func (s *Loader) Reload() error {
	log.Println("Fetching F1 season data...")
	weekends, err := s.fetcher.FetchSeason(s.ctx)
	if s.ctx.Err() != nil {
		return s.ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		log.Printf("Error fetching season data: %v", err)
		return err
	}
	s.weekends = weekends
	s.fetchedAt = time.Now()
	log.Printf("Successfully loaded %d F1 race weekends.", len(weekends))
	return nil
}

// Weekends returns the last successfully loaded calendar.
func (s *Loader) Weekends() []model.RaceWeekend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weekends
}

// Err returns the error of the latest reload, nil when it succeeded.
func (s *Loader) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Loader) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}
