package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/reelforge/reelforge/config"
	"github.com/reelforge/reelforge/internal/cache"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Cache: nil}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	if _, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS reelforge`); err != nil {
		return nil, err
	}
	err = createGenerationJobTable(db)
	if err != nil {
		return nil, err
	}
	err = createSocialAccountTable(db)
	if err != nil {
		return nil, err
	}
	err = createSocialPostTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createGenerationJobTable creates the table backing the generation pipeline.
func createGenerationJobTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reelforge.generation_jobs (
			id SERIAL PRIMARY KEY,
			job_id TEXT NOT NULL UNIQUE,
			tenant_id TEXT NOT NULL,
			concept_id TEXT,
			category TEXT NOT NULL,
			platform TEXT NOT NULL,
			prompt TEXT,
			provider TEXT,
			priority INTEGER DEFAULT 0,
			attempt INTEGER DEFAULT 1,
			status TEXT NOT NULL DEFAULT 'pending',
			video_url TEXT,
			cdn_url TEXT,
			duration_sec DOUBLE PRECISION DEFAULT 0,
			cost NUMERIC(12,4) DEFAULT 0,
			quality_issues TEXT[],
			error_message TEXT,
			meta_data JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_generation_jobs_tenant ON reelforge.generation_jobs (tenant_id);
		CREATE INDEX IF NOT EXISTS idx_generation_jobs_status ON reelforge.generation_jobs (status);
	`)
	return err
}

// createSocialAccountTable creates the table backing the account pool.
func createSocialAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reelforge.social_accounts (
			id SERIAL PRIMARY KEY,
			account_id TEXT NOT NULL UNIQUE,
			tenant_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			username TEXT NOT NULL,
			niche TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			daily_limit INTEGER NOT NULL DEFAULT 10,
			used_today INTEGER NOT NULL DEFAULT 0,
			last_reset TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_social_accounts_pool ON reelforge.social_accounts (tenant_id, platform, active);
	`)
	return err
}

// createSocialPostTable creates the append-only posting history table.
func createSocialPostTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reelforge.social_posts (
			id SERIAL PRIMARY KEY,
			post_id TEXT NOT NULL UNIQUE,
			video_id TEXT NOT NULL,
			account_id TEXT,
			tenant_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			remote_id TEXT,
			remote_url TEXT,
			error_message TEXT,
			posted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_social_posts_video ON reelforge.social_posts (video_id);
		CREATE INDEX IF NOT EXISTS idx_social_posts_status ON reelforge.social_posts (status, posted_at);
	`)
	return err
}
