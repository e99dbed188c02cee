package storage

import (
	"context"
	"fmt"

	"github.com/wagnerlima/knowledgeflow/internal/models"
)

// TreeMode selects how CategoryTree arranges categories.
type TreeMode string

const (
	// TreeRecursive nests categories at every depth. Categories whose parent
	// is absent become roots, and cycles are broken at the first category
	// reached that is not under any root.
	TreeRecursive TreeMode = "recursive"

	// TreeFlat groups only the direct children of root categories; deeper
	// descendants and orphans are left out.
	TreeFlat TreeMode = "flat"
)

// ParseTreeMode validates a tree mode name. Empty means recursive.
func ParseTreeMode(s string) (TreeMode, error) {
	switch m := TreeMode(s); m {
	case "":
		return TreeRecursive, nil
	case TreeRecursive, TreeFlat:
		return m, nil
	}
	return "", fmt.Errorf("unknown tree mode %q (want recursive or flat)", s)
}

// CategoryTree loads the categories of the given type and arranges them as a forest.
func CategoryTree(ctx context.Context, s Store, typ models.CategoryType, mode TreeMode) ([]*models.CategoryNode, error) {
	cats, err := s.ListCategories(ctx, typ)
	if err != nil {
		return nil, err
	}
	return BuildCategoryTree(cats, mode), nil
}

// BuildCategoryTree arranges cats as a forest, keeping their input order among siblings.
func BuildCategoryTree(cats []models.Category, mode TreeMode) []*models.CategoryNode {
	if mode == TreeFlat {
		return buildFlatTree(cats)
	}

	byID := make(map[string]models.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	children := make(map[string][]models.Category)
	var roots []models.Category
	for _, c := range cats {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if _, ok := byID[*c.ParentID]; !ok {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	visited := make(map[string]bool, len(cats))
	var build func(c models.Category) *models.CategoryNode
	build = func(c models.Category) *models.CategoryNode {
		visited[c.ID] = true
		node := &models.CategoryNode{Category: c, Children: []*models.CategoryNode{}}
		for _, child := range children[c.ID] {
			if visited[child.ID] {
				continue
			}
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	forest := make([]*models.CategoryNode, 0, len(roots))
	for _, r := range roots {
		forest = append(forest, build(r))
	}
	// Whatever is left sits on a parent cycle.
	for _, c := range cats {
		if !visited[c.ID] {
			forest = append(forest, build(c))
		}
	}
	return forest
}

func buildFlatTree(cats []models.Category) []*models.CategoryNode {
	roots := make(map[string]*models.CategoryNode)
	forest := []*models.CategoryNode{}
	for _, c := range cats {
		if c.ParentID == nil {
			n := &models.CategoryNode{Category: c, Children: []*models.CategoryNode{}}
			roots[c.ID] = n
			forest = append(forest, n)
		}
	}
	for _, c := range cats {
		if c.ParentID == nil {
			continue
		}
		if parent, ok := roots[*c.ParentID]; ok {
			parent.Children = append(parent.Children, &models.CategoryNode{Category: c, Children: []*models.CategoryNode{}})
		}
	}
	return forest
}
