package db

import (
    "context"
    "errors"
    "fmt"
    "log"
    "os"
    "time"

    "github.com/yourorg/motor-stats/internal/models"
    "gorm.io/driver/postgres"
    "gorm.io/gorm"
    "gorm.io/gorm/logger"
)

// Database owns the schema and the ORM-side lookups.
type Database struct {
    DB *gorm.DB
}

func NewDatabase(cfg Config) (*Database, error) {
    newLogger := logger.New(
        log.New(os.Stdout, "\r\n", log.LstdFlags),
        logger.Config{
            SlowThreshold:             time.Second,
            LogLevel:                  logger.Warn,
            IgnoreRecordNotFoundError: true,
            Colorful:                  false,
        },
    )

    db, err := gorm.Open(postgres.Open(cfg.ConnString()), &gorm.Config{
        Logger: newLogger,
    })

    if err != nil {
        return nil, fmt.Errorf("failed to connect to database: %w", err)
    }

    if err := Migrate(db); err != nil {
        return nil, err
    }

    return &Database{DB: db}, nil
}

// Migrate creates the tables and their natural-key unique indexes.
func Migrate(db *gorm.DB) error {
    err := db.AutoMigrate(
        &models.CarRegistration{},
        &models.COEResult{},
        &models.Deregistration{},
        &models.Post{},
    )
    if err != nil {
        return fmt.Errorf("failed to auto-migrate models: %w", err)
    }
    return nil
}

func (d *Database) Close() error {
    sqlDB, err := d.DB.DB()
    if err != nil {
        return fmt.Errorf("error getting sql.DB: %w", err)
    }
    return sqlDB.Close()
}

// PostRepo looks up generated posts.
type PostRepo struct {
    db *gorm.DB
}

func NewPostRepo(d *Database) *PostRepo { return &PostRepo{db: d.DB} }

// FindByPeriod returns ErrNotFound when no post exists for the period.
// Soft-deleted posts still count: the period's unique key is taken either way.
func (r *PostRepo) FindByPeriod(ctx context.Context, dataType, month string) (models.Post, error) {
    var p models.Post
    err := byPeriod(r.db.WithContext(ctx), dataType, month).First(&p).Error
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return models.Post{}, ErrNotFound
    }
    if err != nil {
        return models.Post{}, err
    }
    return p, nil
}

func byPeriod(db *gorm.DB, dataType, month string) *gorm.DB {
    return db.Unscoped().Where("data_type = ? AND month = ?", dataType, month)
}
