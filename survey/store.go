package survey

import (
	"fmt"
	"sort"
	"sync"
)

// Store holds scan results as a service > resource type > id hierarchy.
// Writes are accepted concurrently during a scan; Freeze seals the store
// and every write after that returns ErrFrozen. Reads are valid at any
// point but queries are meant for the frozen store.
type Store struct {
	mu       sync.RWMutex
	frozen   bool
	services map[string]*Service
}

// Service groups the resource types surveyed for one cloud service.
type Service struct {
	Name  string
	types map[string]*ResourceType
}

// ResourceType holds every surveyed instance of one resource type,
// keyed by resource id.
type ResourceType struct {
	Service   string
	Name      string
	resources map[string]*Resource
}

// NewStore returns an empty, unfrozen store.
func NewStore() *Store {
	return &Store{services: make(map[string]*Service)}
}

// Put records a resource under its service and type. The last write wins
// when the same id is surveyed twice, which keeps re-fetches idempotent.
func (s *Store) Put(r *Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return fmt.Errorf("%w: cannot add %s/%s/%s", ErrFrozen, r.Service, r.Type, r.ID)
	}
	svc, ok := s.services[r.Service]
	if !ok {
		svc = &Service{Name: r.Service, types: make(map[string]*ResourceType)}
		s.services[r.Service] = svc
	}
	rt, ok := svc.types[r.Type]
	if !ok {
		rt = &ResourceType{Service: r.Service, Name: r.Type, resources: make(map[string]*Resource)}
		svc.types[r.Type] = rt
	}
	rt.resources[r.ID] = r
	return nil
}

// Freeze seals the store against further writes. Freezing twice is a
// no-op.
func (s *Store) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

// Frozen reports whether the store has been sealed.
func (s *Store) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// Service returns the named service group.
func (s *Store) Service(name string) (*Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[name]
	if !ok {
		return nil, fmt.Errorf("%w: service %q", ErrNotFound, name)
	}
	return svc, nil
}

// ResourceType returns one resource type group by service and type name.
func (s *Store) ResourceType(service, resourceType string) (*ResourceType, error) {
	svc, err := s.Service(service)
	if err != nil {
		return nil, err
	}
	return svc.ResourceType(resourceType)
}

// Resource returns one resource by service, type, and id.
func (s *Store) Resource(service, resourceType, id string) (*Resource, error) {
	rt, err := s.ResourceType(service, resourceType)
	if err != nil {
		return nil, err
	}
	return rt.Resource(id)
}

// Services returns the surveyed service names, sorted.
func (s *Store) Services() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resources returns a cursor over every resource in the store, ordered
// by service, type, then id.
func (s *Store) Resources() *Cursor {
	s.mu.RLock()
	var all []*Resource
	for _, svcName := range sortedKeys(s.services) {
		svc := s.services[svcName]
		for _, rtName := range sortedKeys(svc.types) {
			all = append(all, svc.types[rtName].sorted()...)
		}
	}
	s.mu.RUnlock()
	return SliceCursor(all)
}

// View returns a restricted copy of the store exposing only the listed
// resource type refs ("service.resource"). Resources are shared, not
// copied, and the view is frozen.
func (s *Store) View(refs []string) (*Store, error) {
	want := make(map[string]map[string]bool)
	for _, ref := range refs {
		svc, rt, ok := splitRef(ref)
		if !ok {
			return nil, fmt.Errorf("%w: bad resource ref %q", ErrQuery, ref)
		}
		if want[svc] == nil {
			want[svc] = make(map[string]bool)
		}
		want[svc][rt] = true
	}

	view := NewStore()
	s.mu.RLock()
	for svcName, types := range want {
		svc, ok := s.services[svcName]
		if !ok {
			continue
		}
		for rtName := range types {
			rt, ok := svc.types[rtName]
			if !ok {
				continue
			}
			vsvc, ok := view.services[svcName]
			if !ok {
				vsvc = &Service{Name: svcName, types: make(map[string]*ResourceType)}
				view.services[svcName] = vsvc
			}
			vsvc.types[rtName] = rt
		}
	}
	s.mu.RUnlock()
	view.Freeze()
	return view, nil
}

// ResourceType returns the named type group within the service.
func (g *Service) ResourceType(name string) (*ResourceType, error) {
	rt, ok := g.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: resource type %q in service %q", ErrNotFound, name, g.Name)
	}
	return rt, nil
}

// ResourceTypes returns the type names surveyed for this service, sorted.
func (g *Service) ResourceTypes() []string {
	return sortedKeys(g.types)
}

// Resources returns a cursor over every resource in the service, ordered
// by type then id.
func (g *Service) Resources() *Cursor {
	var all []*Resource
	for _, name := range sortedKeys(g.types) {
		all = append(all, g.types[name].sorted()...)
	}
	return SliceCursor(all)
}

// Resource returns one instance by id.
func (t *ResourceType) Resource(id string) (*Resource, error) {
	r, ok := t.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s id %q", ErrNotFound, t.Service, t.Name, id)
	}
	return r, nil
}

// Resources returns a cursor over the instances, ordered by id.
func (t *ResourceType) Resources() *Cursor {
	return SliceCursor(t.sorted())
}

// Len returns the number of surveyed instances.
func (t *ResourceType) Len() int {
	return len(t.resources)
}

func (t *ResourceType) sorted() []*Resource {
	out := make([]*Resource, 0, len(t.resources))
	for _, id := range sortedKeys(t.resources) {
		out = append(out, t.resources[id])
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func splitRef(ref string) (service, resource string, ok bool) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '.' {
			if i == 0 || i == len(ref)-1 {
				return "", "", false
			}
			return ref[:i], ref[i+1:], true
		}
	}
	return "", "", false
}
