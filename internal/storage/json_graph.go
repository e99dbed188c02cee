package storage

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

func (s *JSONStore) links() ([]linkRecord, error) {
	return readCollection[linkRecord](s, LinksFile)
}

func (s *JSONStore) categories() ([]categoryRecord, error) {
	return readCollection[categoryRecord](s, CategoriesFile)
}

// items indexes notes and tasks by id for link resolution.
type items struct {
	notes map[string]noteRecord
	tasks map[string]taskRecord
}

func (s *JSONStore) loadItems() (*items, error) {
	notes, err := s.notes()
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks()
	if err != nil {
		return nil, err
	}
	it := &items{
		notes: make(map[string]noteRecord, len(notes)),
		tasks: make(map[string]taskRecord, len(tasks)),
	}
	for _, n := range notes {
		it.notes[n.ID] = n
	}
	for _, t := range tasks {
		it.tasks[t.ID] = t
	}
	return it, nil
}

func (it *items) has(id string) bool {
	_, isNote := it.notes[id]
	_, isTask := it.tasks[id]
	return isNote || isTask
}

// ref describes id as the far end of a link. Ids that resolve to nothing
// are reported as missing rather than dropped.
func (it *items) ref(id, linkType string) models.LinkRef {
	ref := models.LinkRef{ID: id, LinkType: linkTypeOrDefault(linkType)}
	if n, ok := it.notes[id]; ok {
		ref.Title, ref.Kind = n.Title, models.KindNote
	} else if t, ok := it.tasks[id]; ok {
		ref.Title, ref.Kind = t.Title, models.KindTask
	} else {
		ref.Missing = true
	}
	return ref
}

// CreateLink links any two items. If the pair is already linked the stored
// link is returned unchanged with created == false.
func (s *JSONStore) CreateLink(ctx context.Context, fromID, toID, linkType string) (*models.Link, bool, error) {
	if err := checkLinkEnds(fromID, toID); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.loadItems()
	if err != nil {
		return nil, false, err
	}
	for _, id := range []string{fromID, toID} {
		if !it.has(id) {
			return nil, false, notFound("item", id)
		}
	}
	recs, err := s.links()
	if err != nil {
		return nil, false, err
	}
	for _, r := range recs {
		if r.FromID == fromID && r.ToID == toID {
			l := r.link()
			return &l, false, nil
		}
	}
	rec := linkRecord{
		ID:        uuid.NewString(),
		FromID:    fromID,
		ToID:      toID,
		LinkType:  linkTypeOrDefault(linkType),
		CreatedAt: encodeTime(s.clock.now()),
	}
	if err := writeCollection(s, LinksFile, append(recs, rec)); err != nil {
		return nil, false, err
	}
	s.log.Debug("link created", zap.String("from", fromID), zap.String("to", toID))
	l := rec.link()
	return &l, true, nil
}

// DeleteLink removes the link from fromID to toID.
func (s *JSONStore) DeleteLink(ctx context.Context, fromID, toID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.links()
	if err != nil {
		return false, err
	}
	i := slices.IndexFunc(recs, func(r linkRecord) bool { return r.FromID == fromID && r.ToID == toID })
	if i < 0 {
		return false, nil
	}
	if err := writeCollection(s, LinksFile, slices.Delete(recs, i, i+1)); err != nil {
		return false, err
	}
	return true, nil
}

// GetLinks returns every link that starts or ends at id, in insertion order.
func (s *JSONStore) GetLinks(ctx context.Context, id string) ([]models.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.links()
	if err != nil {
		return nil, err
	}
	links := []models.Link{}
	for _, r := range recs {
		if r.FromID == id || r.ToID == id {
			links = append(links, r.link())
		}
	}
	return links, nil
}

// ForwardLinks lists the items id links to, newest link first.
func (s *JSONStore) ForwardLinks(ctx context.Context, id string) ([]models.LinkRef, error) {
	return s.linkRefs(id, true)
}

// Backlinks lists the items that link to id, newest link first.
func (s *JSONStore) Backlinks(ctx context.Context, id string) ([]models.LinkRef, error) {
	return s.linkRefs(id, false)
}

func (s *JSONStore) linkRefs(id string, forward bool) ([]models.LinkRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.links()
	if err != nil {
		return nil, err
	}
	var matched []models.Link
	for _, r := range slices.Backward(recs) {
		if forward && r.FromID == id || !forward && r.ToID == id {
			matched = append(matched, r.link())
		}
	}
	// Later insertions win ties, as they come first after the reversal.
	slices.SortStableFunc(matched, func(a, b models.Link) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	it, err := s.loadItems()
	if err != nil {
		return nil, err
	}
	refs := make([]models.LinkRef, 0, len(matched))
	for _, l := range matched {
		other := l.ToID
		if !forward {
			other = l.FromID
		}
		refs = append(refs, it.ref(other, l.LinkType))
	}
	return refs, nil
}

func (s *JSONStore) removeLinksFor(id string) error {
	recs, err := s.links()
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(recs, func(r linkRecord) bool { return r.FromID == id || r.ToID == id })
	return writeCollection(s, LinksFile, kept)
}

func categoryIndex(recs []categoryRecord, id string) int {
	return slices.IndexFunc(recs, func(r categoryRecord) bool { return r.ID == id })
}

// CreateCategory appends a category. A name that is already taken returns
// the existing category with created == false.
func (s *JSONStore) CreateCategory(ctx context.Context, in models.NewCategory) (*models.Category, bool, error) {
	in, err := checkNewCategory(in)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.categories()
	if err != nil {
		return nil, false, err
	}
	for _, r := range recs {
		if r.Name == in.Name {
			c := r.category()
			return &c, false, nil
		}
	}
	if in.ParentID != nil && categoryIndex(recs, *in.ParentID) < 0 {
		return nil, false, invalid("parent_id", "category %q does not exist", *in.ParentID)
	}
	rec := categoryRecord{
		ID:        uuid.NewString(),
		Name:      in.Name,
		ParentID:  in.ParentID,
		Type:      string(in.Type),
		CreatedAt: encodeTime(s.clock.now()),
	}
	if err := writeCollection(s, CategoriesFile, append(recs, rec)); err != nil {
		return nil, false, err
	}
	s.log.Debug("category created", zap.String("id", rec.ID), zap.String("name", rec.Name))
	c := rec.category()
	return &c, true, nil
}

// GetCategory looks up a category by id.
func (s *JSONStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.categories()
	if err != nil {
		return nil, err
	}
	i := categoryIndex(recs, id)
	if i < 0 {
		return nil, notFound("category", id)
	}
	c := recs[i].category()
	return &c, nil
}

// ListCategories returns categories ordered by name. A non-empty type also
// admits categories of type both.
func (s *JSONStore) ListCategories(ctx context.Context, typ models.CategoryType) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.categories()
	if err != nil {
		return nil, err
	}
	cats := []models.Category{}
	for _, r := range recs {
		if c := r.category(); c.Type.Matches(typ) {
			cats = append(cats, c)
		}
	}
	slices.SortStableFunc(cats, func(a, b models.Category) int { return cmp.Compare(a.Name, b.Name) })
	return cats, nil
}

// checkCategory rejects a category id that names no stored category.
func (s *JSONStore) checkCategory(id *string) error {
	if id == nil {
		return nil
	}
	recs, err := s.categories()
	if err != nil {
		return err
	}
	if categoryIndex(recs, *id) < 0 {
		return invalid("category_id", "category %q does not exist", *id)
	}
	return nil
}

// AssignNoteCategory sets or, with a nil categoryID, clears a note's category.
func (s *JSONStore) AssignNoteCategory(ctx context.Context, noteID string, categoryID *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	categoryID = optionalID(categoryID)
	if err := s.checkCategory(categoryID); err != nil {
		return false, err
	}
	recs, err := s.notes()
	if err != nil {
		return false, err
	}
	i := noteIndex(recs, noteID)
	if i < 0 {
		return false, nil
	}
	n := recs[i].note()
	n.CategoryID = categoryID
	n.UpdatedAt = s.clock.after(n.UpdatedAt)
	recs[i] = newNoteRecord(n)
	return true, writeCollection(s, NotesFile, recs)
}

// AssignTaskCategory sets or, with a nil categoryID, clears a task's category.
func (s *JSONStore) AssignTaskCategory(ctx context.Context, taskID string, categoryID *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	categoryID = optionalID(categoryID)
	if err := s.checkCategory(categoryID); err != nil {
		return false, err
	}
	recs, err := s.tasks()
	if err != nil {
		return false, err
	}
	i := taskIndex(recs, taskID)
	if i < 0 {
		return false, nil
	}
	t := recs[i].task()
	t.CategoryID = categoryID
	t.UpdatedAt = s.clock.after(t.UpdatedAt)
	recs[i] = newTaskRecord(t)
	return true, writeCollection(s, TasksFile, recs)
}

// DeleteCategory clears the category from notes and tasks, then removes it.
// Child categories keep their parent_id.
func (s *JSONStore) DeleteCategory(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.categories()
	if err != nil {
		return false, err
	}
	i := categoryIndex(recs, id)
	if i < 0 {
		return false, nil
	}

	notes, err := s.notes()
	if err != nil {
		return false, err
	}
	if clearCategory(notes, id, func(r *noteRecord) **string { return &r.CategoryID }) {
		if err := writeCollection(s, NotesFile, notes); err != nil {
			return false, err
		}
	}
	tasks, err := s.tasks()
	if err != nil {
		return false, err
	}
	if clearCategory(tasks, id, func(r *taskRecord) **string { return &r.CategoryID }) {
		if err := writeCollection(s, TasksFile, tasks); err != nil {
			return false, err
		}
	}

	if err := writeCollection(s, CategoriesFile, slices.Delete(recs, i, i+1)); err != nil {
		return false, err
	}
	s.log.Debug("category deleted", zap.String("id", id))
	return true, nil
}

// clearCategory nils the category field of every record assigned to id and
// reports whether anything changed.
func clearCategory[T any](recs []T, id string, field func(*T) **string) bool {
	changed := false
	for i := range recs {
		p := field(&recs[i])
		if *p != nil && **p == id {
			*p = nil
			changed = true
		}
	}
	return changed
}
