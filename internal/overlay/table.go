package overlay

import (
	"errors"
	"fmt"
)

// Table maps modes to assets. Mode k (1..Len) selects the k-th asset; every
// other mode, including 0, selects no overlay.
type Table struct {
	assets []*Asset
}

// AssetError reports an overlay that could not be loaded at startup
type AssetError struct {
	Mode int
	Path string
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("overlay for mode %d (%s): %v", e.Mode, e.Path, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// LoadTable loads every path, in mode order. It fails on the first asset
// that cannot be loaded.
func LoadTable(paths []string) (*Table, error) {
	t := &Table{assets: make([]*Asset, 0, len(paths))}
	for i, path := range paths {
		asset, err := LoadAsset(path)
		if err != nil {
			t.Close()
			return nil, &AssetError{Mode: i + 1, Path: path, Err: err}
		}
		t.assets = append(t.assets, asset)
	}
	return t, nil
}

// NewTable builds a table from loaded assets; assets[0] serves mode 1
func NewTable(assets ...*Asset) *Table {
	return &Table{assets: assets}
}

// Lookup returns the asset for mode m
func (t *Table) Lookup(m int) (*Asset, bool) {
	if m < 1 || m > len(t.assets) {
		return nil, false
	}
	a := t.assets[m-1]
	return a, a != nil
}

// Len returns the highest mode with an overlay
func (t *Table) Len() int {
	return len(t.assets)
}

// Close releases every asset
func (t *Table) Close() error {
	var errs []error
	for _, a := range t.assets {
		if a != nil {
			if err := a.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	t.assets = nil
	return errors.Join(errs...)
}
