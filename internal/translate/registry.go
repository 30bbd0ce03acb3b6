package translate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

var ErrDuplicateTranslator = errors.New("translator already registered")

// Registry maps domain ids to translators. Lookups never take a lock;
// registration copies the table and swaps it in, so sessions already holding
// a translator are not disturbed.
type Registry struct {
	writeMu sync.Mutex
	table   atomic.Pointer[map[domain.DomainID]Translator]
}

func NewRegistry(translators ...Translator) (*Registry, error) {
	r := &Registry{}
	empty := map[domain.DomainID]Translator{}
	r.table.Store(&empty)

	for _, t := range translators {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}

	return r, nil
}

type DefaultOptions struct {
	Ecosystem string
}

func NewDefaultRegistry(opts DefaultOptions) (*Registry, error) {
	water, err := NewWaterStressTranslator(opts.Ecosystem)
	if err != nil {
		return nil, err
	}
	bio, err := NewBiodiversityTranslator(opts.Ecosystem)
	if err != nil {
		return nil, err
	}
	return NewRegistry(water, bio)
}

func (r *Registry) Register(t Translator) error {
	return r.put(t, false)
}

// Replace installs t even when its domain is already registered.
func (r *Registry) Replace(t Translator) error {
	return r.put(t, true)
}

func (r *Registry) put(t Translator, overwrite bool) error {
	if t == nil {
		return fmt.Errorf("translator required")
	}
	id := t.Domain()
	if strings.TrimSpace(string(id)) == "" {
		return fmt.Errorf("translator domain required")
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	current := *r.table.Load()
	if _, ok := current[id]; ok && !overwrite {
		return fmt.Errorf("%w: %s", ErrDuplicateTranslator, id)
	}

	next := make(map[domain.DomainID]Translator, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[id] = t
	r.table.Store(&next)

	return nil
}

func (r *Registry) Lookup(id domain.DomainID) (Translator, error) {
	t, ok := (*r.table.Load())[id]
	if !ok {
		return nil, &domain.Error{
			Kind: domain.KindUnknownDomain,
			Err:  fmt.Errorf("no translator registered for domain %q", id),
		}
	}
	return t, nil
}

func (r *Registry) Has(id domain.DomainID) bool {
	_, ok := (*r.table.Load())[id]
	return ok
}

func (r *Registry) Domains() []domain.DomainID {
	table := *r.table.Load()
	ids := make([]domain.DomainID, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) Translate(reading domain.Reading) (domain.FeedbackPattern, error) {
	t, err := r.Lookup(reading.Domain)
	if err != nil {
		return domain.FeedbackPattern{}, err
	}
	return t.Translate(reading)
}
