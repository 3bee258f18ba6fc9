package youtube_to_go

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrDuplicateProvider = errors.New("duplicate provider name")
	ErrInvalidProvider   = errors.New("invalid provider")
	ErrNoMatch           = errors.New("no provider matched the input")
	ErrUnknownProvider   = errors.New("unknown provider")
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

type MatchFunc = func(string) (Source, error)

// A Provider matches any URL it knows how to handle, giving a Source that can be used to download the video.
type Provider struct {
	Name  string
	Match MatchFunc
	// Priority of the matcher, lower (including negative) means matching earlier.
	Priority int16
}

func (p Provider) WithPriority(priority int16) Provider {
	p.Priority = priority
	return p
}

// A Match is the result of a Provider successfully matching a URL.
type Match struct {
	ProviderName string
	Source       Source
}

// A ProviderRegistry is a collection of Provider instances which can be used to try to match URLs. It is safe for
// concurrent use once providers have been registered.
type ProviderRegistry struct {
	mu          sync.RWMutex
	providers   []*Provider
	providerMap map[string]*Provider
}

// Add registers a Provider with the ProviderRegistry. Provider.Name and Provider.Match must be set, and
// Provider.Name must be unique within the ProviderRegistry.
func (r *ProviderRegistry) Add(p Provider) error {
	if p.Name == "" || p.Match == nil {
		return ErrInvalidProvider
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.providerMap == nil {
		r.providerMap = make(map[string]*Provider)
	}
	if _, ok := r.providerMap[p.Name]; ok {
		return ErrDuplicateProvider
	}
	r.providerMap[p.Name] = &p
	r.providers = append(r.providers, r.providerMap[p.Name])
	sort.SliceStable(r.providers, func(i, j int) bool {
		return r.providers[i].Priority < r.providers[j].Priority
	})
	return nil
}

// List returns the names of registered providers in priority order.
func (r *ProviderRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name)
	}
	return names
}

// Match a string against each Provider in priority order. If nothing matches, the error wraps ErrNoMatch together
// with each provider's reason for rejecting the input.
func (r *ProviderRegistry) Match(s string) (*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := multierror.Append(nil, ErrNoMatch)
	for _, p := range r.providers {
		source, err := p.Match(s)
		if source != nil && err == nil {
			return &Match{ProviderName: p.Name, Source: source}, nil
		}
		if err == nil {
			err = errors.New("no source")
		}
		result = multierror.Append(result, multierror.Prefix(err, fmt.Sprintf("[%v]", p.Name)))
	}
	return nil, result
}

// MatchWith will attempt to match a string against a specific provider.
func (r *ProviderRegistry) MatchWith(name string, s string) (*Match, error) {
	r.mu.RLock()
	p, ok := r.providerMap[name]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownProvider
	}
	source, err := p.Match(s)
	if source == nil || err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMatch, err)
	}
	return &Match{ProviderName: p.Name, Source: source}, nil
}

// MustAdd wraps Add but panics if there is an error.
func (r *ProviderRegistry) MustAdd(p Provider) {
	if err := r.Add(p); err != nil {
		panic(fmt.Errorf("failed to add provider %q: %w", p.Name, err))
	}
}

var DefaultProviderRegistry ProviderRegistry
