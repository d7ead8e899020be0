// Command kcoredemo drives the kcore scheduler through a handful of
// canned scenarios from the command line, for manual/visual inspection
// of dispatch order, mutex hand-off, and bus fan-out -- the sort of
// thing RIOT's own board-level examples do at a shell prompt rather
// than under go test.
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dijkstracula/go-kcore"
)

// Worker describes one thread a scenario should create: its priority
// (lower runs first) and how many units of simulated work it does before
// exiting. Unmarshaled straight out of a scenario file.
type Worker struct {
	Name     string `yaml:"name"`
	Priority uint8  `yaml:"priority"`
	Work     int    `yaml:"work"`
}

// ScenarioConfig is the top-level shape of a scenario YAML file: which
// built-in scenario to drive, and the worker set to populate it with.
type ScenarioConfig struct {
	Kind    string   `yaml:"kind"`
	Workers []Worker `yaml:"workers"`
}

// defaultScenario is used whenever no -config file is given: three
// workers contending for a single mutex, priorities chosen so the
// dispatch order is never the creation order.
var defaultScenario = ScenarioConfig{
	Kind: "mutex",
	Workers: []Worker{
		{Name: "low", Priority: 6, Work: 3},
		{Name: "mid", Priority: 5, Work: 2},
		{Name: "high", Priority: 4, Work: 1},
	},
}

func loadScenario(path string) (ScenarioConfig, error) {
	if path == "" {
		return defaultScenario, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ScenarioConfig{}, fmt.Errorf("reading scenario file %q: %w", path, err)
	}
	var cfg ScenarioConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ScenarioConfig{}, fmt.Errorf("parsing scenario file %q: %w", path, err)
	}
	if len(cfg.Workers) == 0 {
		return ScenarioConfig{}, fmt.Errorf("scenario file %q: no workers defined", path)
	}
	return cfg, nil
}

// runMutexScenario has every worker take and release a single shared
// mutex in turn, then reports the order they actually ran in -- which,
// because every worker queues behind the lock boot still holds and the
// mutex's waiter list is priority-sorted, is ascending priority value
// (most urgent first), with equal priorities kept in declaration order.
func runMutexScenario(cfg ScenarioConfig) []string {
	s := kcore.NewScheduler()
	mu := kcore.NewMutex(s)

	var order []string
	done := make(chan struct{}, len(cfg.Workers))

	mu.Lock()
	var workers []*kcore.Thread
	for _, w := range cfg.Workers {
		w := w
		t, err := s.Create(w.Priority, w.Name, kcore.CreateSleeping, func() {
			mu.Lock()
			for i := 0; i < w.Work; i++ {
				s.Yield()
			}
			order = append(order, w.Name)
			mu.Unlock()
			done <- struct{}{}
		})
		if err != nil {
			continue
		}
		workers = append(workers, t)
	}
	for _, t := range workers {
		s.Wakeup(t) // queues up behind the lock boot still holds
	}
	mu.Unlock()

	for range cfg.Workers {
		<-done
	}
	return order
}

// runBusScenario attaches a single subscriber (the calling boot thread) to
// a fresh bus, subscribed to every worker's event type (worker index mod
// 32), posts one event per worker, and reports how many subscribers each
// post reached.
func runBusScenario(cfg ScenarioConfig) []int {
	s := kcore.NewScheduler()
	bus, err := kcore.NewBus(s)
	if err != nil {
		return nil
	}
	qsize := uint32(1)
	for qsize < uint32(len(cfg.Workers)) {
		qsize <<= 1 // message queues must be a power of two
	}
	s.InitQueue(qsize)

	entry := &kcore.BusEntry{}
	bus.Attach(entry)
	for i := range cfg.Workers {
		entry.Subscribe(uint8(i % 32))
	}

	delivered := make([]int, len(cfg.Workers))
	for i := range cfg.Workers {
		delivered[i] = bus.Post(uint8(i%32), cfg.Workers[i].Name)
		s.Receive()
	}
	return delivered
}

// runMailboxScenario feeds every worker's name through a small mailbox,
// one Put/Get round-trip per worker, and returns the names in the order
// they were drained back out.
func runMailboxScenario(cfg ScenarioConfig) []string {
	s := kcore.NewScheduler()
	mbox := kcore.NewMailbox(s, 4)

	var drained []string
	for _, w := range cfg.Workers {
		mbox.Put(kcore.Msg{Ptr: w.Name}, true)
		m, ok := mbox.Get(true)
		if ok {
			drained = append(drained, m.Ptr.(string))
		}
	}
	return drained
}
