package game

import (
	"fmt"

	"github.com/spf13/viper"
)

type catalogFile struct {
	Devices []DeviceEntry `mapstructure:"devices"`
	Ranks   []RankTier    `mapstructure:"ranks"`
}

// LoadCatalogFile reads device and rank tables from a YAML (or any format
// viper understands) file. A section missing from the file keeps the
// built-in defaults. Both tables are validated before use.
func LoadCatalogFile(path string) (*Catalog, RankTable, error) {
	if path == "" {
		return LoadDefaults()
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var f catalogFile
	if err := v.Unmarshal(&f); err != nil {
		return nil, nil, fmt.Errorf("failed to decode catalog file: %w", err)
	}

	devices := f.Devices
	if len(devices) == 0 {
		devices = DefaultDevices()
	}
	ranks := RankTable(f.Ranks)
	if len(ranks) == 0 {
		ranks = DefaultRankTable()
	}

	cat := NewCatalog(devices)
	if err := cat.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid catalog: %w", err)
	}
	if err := ranks.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid rank table: %w", err)
	}
	return cat, ranks, nil
}

func LoadDefaults() (*Catalog, RankTable, error) {
	cat := DefaultCatalog()
	if err := cat.Validate(); err != nil {
		return nil, nil, err
	}
	ranks := DefaultRankTable()
	if err := ranks.Validate(); err != nil {
		return nil, nil, err
	}
	return cat, ranks, nil
}
