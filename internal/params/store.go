// Package params loads and serves the versioned T4127 tax tables. A Store
// is populated lazily, validated fatally on load, and immutable afterwards;
// once cached a parameter set is shared across all workers without locking.
package params

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/maplepay/maplepay/internal/domain"
)

var (
	// ErrParameterNotFound signals a missing year, edition or jurisdiction.
	ErrParameterNotFound = errors.New("parameter not found")
	// ErrParameterInvalid signals a file that failed validation. The
	// affected edition is unusable; the error never reaches an end user
	// of a calculation call.
	ErrParameterInvalid = errors.New("parameter invalid")
)

// Set is one fully-loaded, validated (year, edition) parameter bundle.
type Set struct {
	Key           domain.EditionKey
	CPP           domain.CPPParams
	EI            domain.EIParams
	Federal       domain.FederalParams
	Jurisdictions map[domain.Jurisdiction]domain.JurisdictionParams
}

// For assembles the per-calculation bundle for one jurisdiction.
func (s *Set) For(code domain.Jurisdiction) (domain.ParameterSet, error) {
	j, ok := s.Jurisdictions[code]
	if !ok {
		return domain.ParameterSet{}, fmt.Errorf("%w: jurisdiction %s in %s", ErrParameterNotFound, code, s.Key)
	}
	return domain.ParameterSet{CPP: s.CPP, EI: s.EI, Federal: s.Federal, Jurisdiction: j}, nil
}

// Store serves immutable tax parameters from a year-partitioned config
// directory (config/tax_tables/<year>/). Loads are idempotent and cached.
type Store struct {
	dir string

	mu    sync.Mutex
	cache map[domain.EditionKey]*Set
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, cache: make(map[domain.EditionKey]*Set)}
}

// Load reads, validates and caches the full parameter set for one
// (year, edition). Subsequent calls for the same key return the cached set.
func (s *Store) Load(year int, edition domain.Edition) (*Set, error) {
	key := domain.EditionKey{Year: year, Edition: edition}

	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.cache[key]; ok {
		return set, nil
	}

	set, err := s.loadLocked(key)
	if err != nil {
		return nil, err
	}
	if err := validateSet(set); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	s.cache[key] = set
	return set, nil
}

func (s *Store) loadLocked(key domain.EditionKey) (*Set, error) {
	yearDir := filepath.Join(s.dir, strconv.Itoa(key.Year))

	var cppEI cppEIDoc
	if err := readDoc(filepath.Join(yearDir, "cpp_ei.yaml"), &cppEI); err != nil {
		return nil, err
	}

	fedFile := fmt.Sprintf("federal_%s.yaml", key.Edition)
	var fed federalDoc
	if err := readDoc(filepath.Join(yearDir, fedFile), &fed); err != nil {
		return nil, err
	}
	federal, err := fed.toFederal(fedFile)
	if err != nil {
		return nil, err
	}

	provFile := fmt.Sprintf("provinces_%s.yaml", key.Edition)
	var provs provincesDoc
	if err := readDoc(filepath.Join(yearDir, provFile), &provs); err != nil {
		return nil, err
	}
	jurisdictions := make(map[domain.Jurisdiction]domain.JurisdictionParams, len(provs.Jurisdictions))
	for code, doc := range provs.Jurisdictions {
		j := domain.Jurisdiction(code)
		if !j.Valid() {
			return nil, fmt.Errorf("%w: %s: unknown jurisdiction %q", ErrParameterInvalid, provFile, code)
		}
		p, err := doc.toJurisdiction(provFile, j, key.Year, key.Edition)
		if err != nil {
			return nil, err
		}
		jurisdictions[j] = p
	}

	return &Set{
		Key:           key,
		CPP:           cppEI.toCPP(),
		EI:            cppEI.toEI(),
		Federal:       federal,
		Jurisdictions: jurisdictions,
	}, nil
}

// GetFederal returns the federal parameters for an edition.
func (s *Store) GetFederal(year int, edition domain.Edition) (domain.FederalParams, error) {
	set, err := s.Load(year, edition)
	if err != nil {
		return domain.FederalParams{}, err
	}
	return set.Federal, nil
}

// GetCPP returns the CPP parameters for a year. CPP carries no edition;
// the January set is authoritative for the whole year.
func (s *Store) GetCPP(year int) (domain.CPPParams, error) {
	set, err := s.Load(year, domain.EditionJan)
	if err != nil {
		return domain.CPPParams{}, err
	}
	return set.CPP, nil
}

// GetEI returns the EI parameters for a year.
func (s *Store) GetEI(year int) (domain.EIParams, error) {
	set, err := s.Load(year, domain.EditionJan)
	if err != nil {
		return domain.EIParams{}, err
	}
	return set.EI, nil
}

// GetJurisdiction returns one province or territory's parameters.
func (s *Store) GetJurisdiction(year int, edition domain.Edition, code domain.Jurisdiction) (domain.JurisdictionParams, error) {
	set, err := s.Load(year, edition)
	if err != nil {
		return domain.JurisdictionParams{}, err
	}
	j, ok := set.Jurisdictions[code]
	if !ok {
		return domain.JurisdictionParams{}, fmt.Errorf("%w: jurisdiction %s in %d/%s", ErrParameterNotFound, code, year, edition)
	}
	return j, nil
}
