package catalog

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeeshop/data"
)

func loadEmbedded(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load(data.FS)
	require.NoError(t, err)
	return c
}

func TestLoadEmbeddedCatalog(t *testing.T) {
	c := loadEmbedded(t)
	assert.Equal(t, 12, c.Len())

	p, err := c.Product("2")
	require.NoError(t, err)
	assert.Equal(t, "Colombian Supremo", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("14.50")))
	assert.Equal(t, RoastMedium, p.RoastLevel)
	assert.Equal(t, []string{"caramel", "red apple", "cocoa"}, p.FlavorNotes)
}

func TestCategoriesOrderedByDisplayOrder(t *testing.T) {
	cats := loadEmbedded(t).Categories()
	require.Len(t, cats, 3)
	for i := 1; i < len(cats); i++ {
		assert.LessOrEqual(t, cats[i-1].DisplayOrder, cats[i].DisplayOrder)
	}
	assert.Equal(t, "beans", cats[0].ID)
}

func TestListPagination(t *testing.T) {
	c := loadEmbedded(t)

	tests := []struct {
		name      string
		filter    Filter
		page      int
		perPage   int
		wantLen   int
		wantTotal int
		wantPage  int
		wantPer   int
	}{
		{"defaults", Filter{}, 0, 0, 12, 12, 1, DefaultPerPage},
		{"second page", Filter{}, 2, 5, 5, 12, 2, 5},
		{"last partial page", Filter{}, 3, 5, 2, 12, 3, 5},
		{"past the end", Filter{}, 4, 5, 0, 12, 4, 5},
		{"clamped", Filter{}, 1, 500, 12, 12, 1, MaxPerPage},
		{"category", Filter{Category: "pods"}, 1, 3, 3, 4, 1, 3},
		{"category second page", Filter{Category: "ground"}, 2, 3, 1, 4, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.List(tt.filter, tt.page, tt.perPage)
			require.NoError(t, err)
			assert.Len(t, got.Products, tt.wantLen)
			assert.LessOrEqual(t, len(got.Products), got.PerPage)
			assert.Equal(t, tt.wantTotal, got.Total)
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantPer, got.PerPage)
			assert.NotNil(t, got.Products)
			for _, p := range got.Products {
				if tt.filter.Category != "" {
					assert.Equal(t, tt.filter.Category, p.Category)
				}
			}
		})
	}
}

func TestListKeepsLoadOrder(t *testing.T) {
	c := loadEmbedded(t)
	first, err := c.List(Filter{}, 1, 4)
	require.NoError(t, err)
	second, err := c.List(Filter{}, 2, 4)
	require.NoError(t, err)

	var ids []string
	for _, p := range append(first.Products, second.Products...) {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8"}, ids)
}

func TestListUnknownCategory(t *testing.T) {
	_, err := loadEmbedded(t).List(Filter{Category: "tea"}, 1, 12)
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestProductNotFound(t *testing.T) {
	_, err := loadEmbedded(t).Product("nope")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestNewRejectsInvalidCatalog(t *testing.T) {
	cats := []Category{{ID: "beans", DisplayOrder: 1}}
	valid := Product{ID: "1", Category: "beans", RoastLevel: RoastDark, Price: decimal.NewFromInt(5)}

	tests := []struct {
		name     string
		products []Product
		want     string
	}{
		{"duplicate id", []Product{valid, valid}, "duplicate product id"},
		{"bad roast", []Product{{ID: "2", Category: "beans", RoastLevel: "Burnt"}}, "invalid roast level"},
		{"negative price", []Product{{ID: "3", Category: "beans", RoastLevel: RoastLight, Price: decimal.NewFromInt(-1)}}, "negative price"},
		{"unknown category", []Product{{ID: "4", Category: "tea", RoastLevel: RoastLight}}, "unknown category"},
		{"empty id", []Product{{Category: "beans", RoastLevel: RoastLight}}, "empty id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.products, cats)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadReportsMissingFile(t *testing.T) {
	fsys := fstest.MapFS{
		CategoriesFile: {Data: []byte(`{"categories":[]}`)},
	}
	_, err := Load(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ProductsFile)
}

func TestLoadFromMapFS(t *testing.T) {
	fsys := fstest.MapFS{
		ProductsFile: {Data: []byte(`{"products":[{"id":"a","name":"A","price":9.99,"category":"beans","roast_level":"Light","in_stock":true}]}`)},
		CategoriesFile: {Data: []byte(`{"categories":[{"id":"beans","name":"Beans","display_order":1}]}`)},
	}
	c, err := Load(fsys)
	require.NoError(t, err)
	p, err := c.Product("a")
	require.NoError(t, err)
	assert.Equal(t, "9.99", p.Price.String())
}
