// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"log"
	"os"
	"time"

	"github.com/a2cps/phantomdb-go/internal/conf"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines the
// operations the rest of the application performs against the store.
type Interface interface {
	Open() error
	Close() error
	// SaveBatch persists one ingestion pass atomically. Integrity errors
	// (duplicate identifiers, foreign key violations) propagate unmodified
	// and roll the whole batch back.
	SaveBatch(batch *ArtifactBatch) error
	// ScanExists reports whether a Scan with the given identifier is
	// already stored, used to resolve derivative parents from prior runs.
	ScanExists(id string) (bool, error)
	GetAllScans() ([]Scan, error)
	// StatusLog reads the consolidated status view, one row per scan,
	// ordered by (site, dicom day).
	StatusLog() ([]StatusRow, error)
	// ReadTable dumps a known table or view as column names plus string
	// valued rows, for delimited exports.
	ReadTable(name string) (columns []string, rows [][]string, err error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// createGormLogger configures the GORM logger; queries are only echoed in
// debug mode.
func createGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// performAutoMigration runs the schema migration for all entities and then
// recreates the derived views on top of them.
func performAutoMigration(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Scan{},
		&ConversionRecord{},
		&AnatomicalDerivative{},
		&FunctionalDerivative{},
		&DiffusionDerivative{},
		&FunctionalSlice{},
	); err != nil {
		return dbError(err, "auto-migration")
	}
	return createViews(db)
}

// SaveBatch stores one ingestion pass as a single transaction, parents
// before children so foreign keys resolve within the batch.
func (ds *DataStore) SaveBatch(batch *ArtifactBatch) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		for i := range batch.Scans {
			if err := tx.Create(&batch.Scans[i]).Error; err != nil {
				return dbError(err, "save scan", "id", batch.Scans[i].ID)
			}
		}
		for i := range batch.Conversions {
			if err := tx.Create(&batch.Conversions[i]).Error; err != nil {
				return dbError(err, "save conversion record")
			}
		}
		for i := range batch.Anatomicals {
			if err := tx.Create(&batch.Anatomicals[i]).Error; err != nil {
				return dbError(err, "save anatomical derivative", "id", batch.Anatomicals[i].ID)
			}
		}
		for i := range batch.Functionals {
			if err := tx.Create(&batch.Functionals[i]).Error; err != nil {
				return dbError(err, "save functional derivative", "id", batch.Functionals[i].ID)
			}
		}
		for i := range batch.Diffusions {
			if err := tx.Create(&batch.Diffusions[i]).Error; err != nil {
				return dbError(err, "save diffusion derivative", "id", batch.Diffusions[i].ID)
			}
		}
		for i := range batch.Slices {
			if err := tx.Create(&batch.Slices[i]).Error; err != nil {
				return dbError(err, "save functional slice",
					"functional_derivative_id", batch.Slices[i].FunctionalDerivativeID)
			}
		}
		return nil
	})
}

// ScanExists reports whether a scan with the given identifier exists.
func (ds *DataStore) ScanExists(id string) (bool, error) {
	var count int64
	if err := ds.DB.Model(&Scan{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, dbError(err, "scan lookup", "id", id)
	}
	return count > 0, nil
}

// GetAllScans retrieves every stored scan.
func (ds *DataStore) GetAllScans() ([]Scan, error) {
	var scans []Scan
	if err := ds.DB.Find(&scans).Error; err != nil {
		return nil, dbError(err, "get all scans")
	}
	return scans, nil
}
