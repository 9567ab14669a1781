package catalog

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
)

const (
	ProductsFile   = "coffee.json"
	CategoriesFile = "categories.json"
)

type productsDoc struct {
	Products []Product `json:"products"`
}

type categoriesDoc struct {
	Categories []Category `json:"categories"`
}

// Load reads ProductsFile and CategoriesFile from fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	var pd productsDoc
	if err := readJSON(fsys, ProductsFile, &pd); err != nil {
		return nil, err
	}
	var cd categoriesDoc
	if err := readJSON(fsys, CategoriesFile, &cd); err != nil {
		return nil, err
	}
	c, err := New(pd.Products, cd.Categories)
	if err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return c, nil
}

// LoadDir reads the catalog files from a directory on disk.
func LoadDir(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

func readJSON(fsys fs.FS, name string, v any) error {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}
