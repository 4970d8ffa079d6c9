package game

import (
	"fmt"
	"math"
	"strings"

	"srg-miniapp-backend/internal/models"
)

// DeviceEntry is static reference data for one device type. Generators keep
// their output as a negative EnergyPerDay, the way the catalog was authored.
type DeviceEntry struct {
	ID           string                `json:"id" mapstructure:"id"`
	Name         string                `json:"name" mapstructure:"name"`
	Category     models.DeviceCategory `json:"category" mapstructure:"category"`
	Tier         string                `json:"tier" mapstructure:"tier"`
	SilverCost   float64               `json:"silver_cost" mapstructure:"silver_cost"`
	SRGPerDay    float64               `json:"srg_per_day" mapstructure:"srg_per_day"`
	EnergyPerDay float64               `json:"energy_per_day" mapstructure:"energy_per_day"`
}

// EnergyPerHour is the magnitude of energy produced (generators) or
// consumed (miners) per hour.
func (d DeviceEntry) EnergyPerHour() float64 {
	return math.Abs(d.EnergyPerDay) / 24
}

func (d DeviceEntry) SRGPerHour() float64 {
	if d.Category != models.CategoryMiner {
		return 0
	}
	return d.SRGPerDay / 24
}

type Catalog struct {
	Devices []DeviceEntry
	index   map[string]DeviceEntry
}

func NewCatalog(devices []DeviceEntry) *Catalog {
	c := &Catalog{
		Devices: devices,
		index:   make(map[string]DeviceEntry, len(devices)),
	}
	for _, d := range devices {
		c.index[normalizeTypeID(d.ID)] = d
	}
	return c
}

func normalizeTypeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// FindDevice matches typeID case-insensitively. A missing entry is not an
// error: callers treat it as a device with no contribution.
func (c *Catalog) FindDevice(typeID string) (DeviceEntry, bool) {
	if c == nil {
		return DeviceEntry{}, false
	}
	d, ok := c.index[normalizeTypeID(typeID)]
	return d, ok
}

func (c *Catalog) ByCategory(category models.DeviceCategory) []DeviceEntry {
	var out []DeviceEntry
	for _, d := range c.Devices {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Validate rejects a catalog that would corrupt accrual. It runs once at load.
func (c *Catalog) Validate() error {
	if len(c.Devices) == 0 {
		return fmt.Errorf("catalog has no devices")
	}
	seen := make(map[string]bool, len(c.Devices))
	for _, d := range c.Devices {
		key := normalizeTypeID(d.ID)
		if key == "" {
			return fmt.Errorf("device with empty id")
		}
		if seen[key] {
			return fmt.Errorf("duplicate device id: %s", d.ID)
		}
		seen[key] = true

		switch d.Category {
		case models.CategoryMiner:
			if d.SRGPerDay < 0 || d.EnergyPerDay < 0 {
				return fmt.Errorf("miner %s has negative rates", d.ID)
			}
		case models.CategoryGenerator:
			if d.SRGPerDay != 0 {
				return fmt.Errorf("generator %s cannot produce SRG", d.ID)
			}
		default:
			return fmt.Errorf("device %s has invalid category: %s", d.ID, d.Category)
		}
		if d.SilverCost < 0 || math.IsNaN(d.SilverCost) {
			return fmt.Errorf("device %s has invalid cost", d.ID)
		}
	}
	return nil
}

func DefaultDevices() []DeviceEntry {
	return []DeviceEntry{
		{ID: "m1", Name: "NEON PULSE v1", Category: models.CategoryMiner, Tier: "T1", SilverCost: 2000, SRGPerDay: 4000.0, EnergyPerDay: 13.0},
		{ID: "m2", Name: "NEON PULSE v2", Category: models.CategoryMiner, Tier: "T1", SilverCost: 6000, SRGPerDay: 12371.1, EnergyPerDay: 38.0},
		{ID: "m3", Name: "GIGA FORCE - X", Category: models.CategoryMiner, Tier: "T2", SilverCost: 10000, SRGPerDay: 21276.6, EnergyPerDay: 62.0},
		{ID: "m4", Name: "GIGA FORCE - PRO", Category: models.CategoryMiner, Tier: "T2", SilverCost: 20000, SRGPerDay: 43956.0, EnergyPerDay: 125.0},
		{ID: "m5", Name: "TITAN CORE NODE", Category: models.CategoryMiner, Tier: "T3", SilverCost: 40000, SRGPerDay: 90909.1, EnergyPerDay: 250.0},
		{ID: "m6", Name: "TITAN ULTRA-NET", Category: models.CategoryMiner, Tier: "T3", SilverCost: 100000, SRGPerDay: 235294.1, EnergyPerDay: 610.0},
		{ID: "m7", Name: "SILVER-CORE i7", Category: models.CategoryMiner, Tier: "T4", SilverCost: 150000, SRGPerDay: 375000.0, EnergyPerDay: 920.0},
		{ID: "m8", Name: "SILVER-CORE MAX", Category: models.CategoryMiner, Tier: "T4", SilverCost: 200000, SRGPerDay: 512820.5, EnergyPerDay: 1240.0},
		{ID: "m9", Name: "CYBER OVERLORD", Category: models.CategoryMiner, Tier: "ELITE", SilverCost: 400000, SRGPerDay: 1095890.4, EnergyPerDay: 2500.0},
		{ID: "m10", Name: "OMEGA PROTOCOL", Category: models.CategoryMiner, Tier: "ELITE", SilverCost: 500000, SRGPerDay: 1428571.4, EnergyPerDay: 3100.0},

		{ID: "g1", Name: "SOLAR PAD v1", Category: models.CategoryGenerator, Tier: "P1", SilverCost: 1000, EnergyPerDay: -40.0},
		{ID: "g2", Name: "SOLAR PAD v2", Category: models.CategoryGenerator, Tier: "P1", SilverCost: 3000, EnergyPerDay: -128.0},
		{ID: "g3", Name: "WIND VORTEX", Category: models.CategoryGenerator, Tier: "P2", SilverCost: 10000, EnergyPerDay: -480.0},
		{ID: "g4", Name: "IONIC BATTERY X", Category: models.CategoryGenerator, Tier: "P3", SilverCost: 20000, EnergyPerDay: -1024.0},
		{ID: "g5", Name: "FUSION REACTOR", Category: models.CategoryGenerator, Tier: "P4", SilverCost: 50000, EnergyPerDay: -2720.0},
		{ID: "g6", Name: "DARK MATTER CELL", Category: models.CategoryGenerator, Tier: "ELITE", SilverCost: 75000, EnergyPerDay: -4320.0},
	}
}

func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultDevices())
}
