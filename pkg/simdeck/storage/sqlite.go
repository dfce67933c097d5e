package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/himanishpuri/SimilarityDeck/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "simdeck_history.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when no analysis has the requested id.
var ErrNotFound = errors.New("analysis not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Analysis is one recorded analyze attempt.
type Analysis struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Profile       string    `gorm:"index:idx_analysis_profile" json:"profile"`
	QueryFile     string    `json:"query_file"`
	QuerySize     int64     `json:"query_size"`
	Outcome       string    `gorm:"index:idx_analysis_outcome" json:"outcome"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	ResultCount   int       `json:"result_count"`
	AvgSimilarity float64   `json:"avg_similarity"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `gorm:"index:idx_analysis_created" json:"created_at"`
	Matches       []Match   `gorm:"foreignKey:AnalysisID;constraint:OnDelete:CASCADE" json:"matches,omitempty"`
}

// Match is one ranked result of an analysis. Position 0 is the best match.
type Match struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"-"`
	AnalysisID string  `gorm:"type:varchar(36);index:idx_match_analysis" json:"-"`
	Position   int     `json:"position"`
	ResultID   string  `json:"result_id"`
	Title      string  `json:"title"`
	Subtitle   string  `json:"subtitle,omitempty"`
	Similarity float64 `json:"similarity"`
	MediaRef   string  `json:"media"`
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("SIMDECK_HISTORY_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dbPath != ":memory:" {
		if err := utils.EnsureParent(dbPath); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// sqlite serializes writers anyway; one connection also keeps :memory: shared.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Analysis{}, &Match{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveAnalysis stores a and its matches in one transaction, assigning an id
// and creation time when they are unset.
func (c *DBClient) SaveAnalysis(ctx context.Context, a *Analysis) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	for i := range a.Matches {
		a.Matches[i].AnalysisID = a.ID
		a.Matches[i].Position = i
	}

	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(a).Error
	})
	if err != nil {
		return "", fmt.Errorf("creating analysis: %w", err)
	}
	return a.ID, nil
}

// ListAnalyses returns the newest analyses first, without their matches.
// A limit of zero or less returns everything.
func (c *DBClient) ListAnalyses(ctx context.Context, limit int) ([]Analysis, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	q := c.DB.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []Analysis
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return rows, nil
}

// GetAnalysis loads one analysis with its matches in rank order.
func (c *DBClient) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var a Analysis
	err := c.DB.WithContext(ctx).
		Preload("Matches", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis: %w", err)
	}
	return &a, nil
}

func (c *DBClient) DeleteAnalysis(ctx context.Context, id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("analysis_id = ?", id).Delete(&Match{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Analysis{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (c *DBClient) CountAnalyses(ctx context.Context) (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.WithContext(ctx).Model(&Analysis{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting analyses: %w", err)
	}
	return count, nil
}
