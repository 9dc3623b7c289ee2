package sparql

import (
	"context"
	"fmt"
	"strconv"

	"wiser/scope/internal/ctxlog"
	"wiser/scope/internal/db"
)

// Store is the part of the inventory store the importer writes to.
// *db.DB satisfies it.
type Store interface {
	EnsureActivity(code, name string, opts db.CreateActivityOpts) (int64, bool, error)
	InputsOf(consumerID int64) ([]db.Exchange, error)
	CreateExchange(consumerID, producerID int64, exchangeType string, amount float64) (int64, error)
	SetCharacterizationFactor(method string, flowID int64, factor float64) error
	GetActivityByCode(code string) (*db.Activity, error)
}

// Source is where the importer reads activity data from. *Client satisfies it.
type Source interface {
	Technosphere(ctx context.Context, src string) ([]TechnosphereRow, error)
	Biosphere(ctx context.Context, src string) ([]BiosphereRow, error)
}

// ImportStats counts what an import added.
type ImportStats struct {
	Activities int `json:"activities"`
	Flows      int `json:"flows"`
	Exchanges  int `json:"exchanges"`
	Skipped    int `json:"skipped"` // rows without a usable value
}

// Importer copies the sub-tree of an activity into the store. Activities and
// exchanges that already exist are left alone.
type Importer struct {
	store  Store
	source Source

	// Methods lists the methods under which imported carbon dioxide flows
	// are characterized with factor 1.
	Methods []string
}

// NewImporter creates an importer characterizing flows under IPCC and GCC.
func NewImporter(store Store, source Source) *Importer {
	return &Importer{store: store, source: source, Methods: []string{"IPCC", "GCC"}}
}

// Import fetches the technosphere and carbon dioxide flows below src and
// returns the stored root activity with the counts of what was added.
func (im *Importer) Import(ctx context.Context, src string) (*db.Activity, ImportStats, error) {
	log := ctxlog.FromContext(ctx)
	var stats ImportStats

	techno, err := im.source.Technosphere(ctx, src)
	if err != nil {
		return nil, stats, fmt.Errorf("fetching technosphere: %w", err)
	}
	bio, err := im.source.Biosphere(ctx, src)
	if err != nil {
		return nil, stats, fmt.Errorf("fetching biosphere: %w", err)
	}
	log.Debug("fetched activity data", "src", src, "technosphere", len(techno), "biosphere", len(bio))

	for _, row := range techno {
		parent, err := im.ensure(&stats, row.Parent, row.ParentName, db.CreateActivityOpts{
			Location:   row.ParentLocation,
			Unit:       row.ParentUnit,
			Categories: []string{"technosphere"},
		})
		if err != nil {
			return nil, stats, err
		}
		child, err := im.ensure(&stats, row.Child, row.ChildName, db.CreateActivityOpts{
			Location:   row.Location,
			Unit:       row.Unit,
			Categories: []string{"technosphere"},
		})
		if err != nil {
			return nil, stats, err
		}
		if err := im.link(&stats, parent, child, db.ExchangeTechnosphere, row.Value); err != nil {
			return nil, stats, err
		}
	}

	for _, row := range bio {
		parent, err := im.ensure(&stats, row.Parent, row.ParentName, db.CreateActivityOpts{
			Categories: []string{"technosphere"},
		})
		if err != nil {
			return nil, stats, err
		}
		code := SanitizeKey(row.ExchangeName)
		flow, created, err := im.store.EnsureActivity(code, row.ExchangeName, db.CreateActivityOpts{
			Type:       db.TypeEmission,
			Unit:       row.Unit,
			Categories: []string{"biosphere", row.SubCategory},
		})
		if err != nil {
			return nil, stats, fmt.Errorf("storing flow %q: %w", row.ExchangeName, err)
		}
		if created {
			stats.Flows++
			for _, m := range im.Methods {
				if err := im.store.SetCharacterizationFactor(m, flow, 1); err != nil {
					return nil, stats, err
				}
			}
		}
		if err := im.link(&stats, parent, flow, db.ExchangeBiosphere, row.Value); err != nil {
			return nil, stats, err
		}
	}

	root, err := im.store.GetActivityByCode(SanitizeKey(src))
	if err != nil {
		return nil, stats, fmt.Errorf("imported data has no activity for %s: %w", src, err)
	}
	log.Info("imported activity", "code", root.Code, "activities", stats.Activities,
		"flows", stats.Flows, "exchanges", stats.Exchanges, "skipped", stats.Skipped)
	return root, stats, nil
}

func (im *Importer) ensure(stats *ImportStats, iri, name string, opts db.CreateActivityOpts) (int64, error) {
	if name == "" {
		name = iri
	}
	id, created, err := im.store.EnsureActivity(SanitizeKey(iri), name, opts)
	if err != nil {
		return 0, fmt.Errorf("storing activity %s: %w", iri, err)
	}
	if created {
		stats.Activities++
	}
	return id, nil
}

// link adds an exchange unless value is empty or unparsable, or the same
// exchange already exists.
func (im *Importer) link(stats *ImportStats, consumer, producer int64, exchangeType, value string) error {
	if value == "" {
		stats.Skipped++
		return nil
	}
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		stats.Skipped++
		return nil
	}
	existing, err := im.store.InputsOf(consumer)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.ProducerID == producer && e.Type == exchangeType {
			return nil
		}
	}
	if _, err := im.store.CreateExchange(consumer, producer, exchangeType, amount); err != nil {
		return err
	}
	stats.Exchanges++
	return nil
}
