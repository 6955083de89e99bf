package scrapers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/scraper/browser"
)

type Factory func(launcher browser.Launcher) Scraper

var (
	registryMu sync.RWMutex
	registry   = map[models.Jurisdiction]Factory{}
)

func Register(j models.Jurisdiction, f Factory) {
	j = models.ParseJurisdiction(string(j))
	if j == "" {
		panic("scrapers: empty jurisdiction in Register")
	}
	if f == nil {
		panic("scrapers: nil factory in Register for " + j.String())
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[j]; exists {
		panic("scrapers: duplicate registration for " + j.String())
	}
	registry[j] = f
}

func FactoryByName(name string) (Factory, bool) {
	j := models.ParseJurisdiction(name)
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[j]
	return f, ok
}

func Available() []models.Jurisdiction {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]models.Jurisdiction, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func AvailableNames() []string {
	available := Available()
	out := make([]string, 0, len(available))
	for _, j := range available {
		out = append(out, j.String())
	}
	return out
}

// New builds the scraper registered for name.
func New(name string, launcher browser.Launcher) (Scraper, error) {
	f, ok := FactoryByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown jurisdiction %q (available: %v)", name, AvailableNames())
	}
	return f(launcher), nil
}

// Descriptions returns the static description of every registered scraper.
func Descriptions() []Description {
	available := Available()
	out := make([]Description, 0, len(available))
	for _, j := range available {
		f, _ := FactoryByName(j.String())
		out = append(out, f(nil).Describe())
	}
	return out
}
