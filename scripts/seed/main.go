// Command seed provisions the database schema and a minimal data set
// for local development: one admin, one tutor, one student and two
// published courses.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/techlyn/academy-api/pkg/config"
	"github.com/techlyn/academy-api/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name TEXT NOT NULL,
    avatar_url TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'STUDENT',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    last_login TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    revoked BOOLEAN NOT NULL DEFAULT FALSE,
    revoked_at TIMESTAMPTZ,
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS password_reset_tokens (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    used_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    level TEXT NOT NULL,
    duration_hours INTEGER NOT NULL DEFAULT 0,
    price NUMERIC(10,2) NOT NULL DEFAULT 0,
    is_featured BOOLEAN NOT NULL DEFAULT FALSE,
    slug TEXT NOT NULL UNIQUE,
    tutor_id UUID REFERENCES users(id),
    has_content BOOLEAN NOT NULL DEFAULT FALSE,
    total_modules INTEGER NOT NULL DEFAULT 0,
    total_content INTEGER NOT NULL DEFAULT 0,
    total_duration_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS modules (
    id UUID PRIMARY KEY,
    course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL DEFAULT 0,
    is_published BOOLEAN NOT NULL DEFAULT FALSE,
    published_at TIMESTAMPTZ,
    estimated_duration_minutes INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS contents (
    id UUID PRIMARY KEY,
    module_id UUID NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
    course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL,
    content_url TEXT NOT NULL DEFAULT '',
    storage_public_id TEXT NOT NULL DEFAULT '',
    duration_minutes INTEGER NOT NULL DEFAULT 0,
    position INTEGER NOT NULL DEFAULT 0,
    is_free BOOLEAN NOT NULL DEFAULT FALSE,
    is_published BOOLEAN NOT NULL DEFAULT FALSE,
    published_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    course_id UUID NOT NULL REFERENCES courses(id),
    status TEXT NOT NULL DEFAULT 'pending',
    payment_status TEXT NOT NULL DEFAULT 'pending',
    payment_method TEXT NOT NULL DEFAULT '',
    payment_reference TEXT NOT NULL DEFAULT '',
    bank_name TEXT NOT NULL DEFAULT '',
    transfer_date TIMESTAMPTZ,
    amount_paid NUMERIC(10,2) NOT NULL DEFAULT 0,
    progress INTEGER NOT NULL DEFAULT 0,
    enrollment_date TIMESTAMPTZ,
    last_accessed TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    CONSTRAINT enrollments_user_course_key UNIQUE (user_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_user ON enrollments (user_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments (course_id);
CREATE INDEX IF NOT EXISTS idx_modules_course ON modules (course_id);
CREATE INDEX IF NOT EXISTS idx_contents_module ON contents (module_id);
`

func main() {
	var password string
	flag.StringVar(&password, "password", "changeme123", "password for all seed accounts")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()

	users := []struct {
		email string
		name  string
		role  string
	}{
		{"admin@techylynacademy.com", "Academy Admin", "ADMIN"},
		{"tutor@techylynacademy.com", "Grace Tutor", "TUTOR"},
		{"student@techylynacademy.com", "Ada Student", "STUDENT"},
	}

	ids := make(map[string]string, len(users))
	for _, u := range users {
		id := uuid.NewString()
		_, err := db.Exec(`
			INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
			ON CONFLICT (email) DO NOTHING`,
			id, u.email, string(hash), u.name, u.role, now)
		if err != nil {
			log.Fatalf("failed to seed user %s: %v", u.email, err)
		}
		if err := db.Get(&id, `SELECT id FROM users WHERE email = $1`, u.email); err != nil {
			log.Fatalf("failed to read back user %s: %v", u.email, err)
		}
		ids[u.role] = id
		log.Printf("user %s (%s)", u.email, u.role)
	}

	courses := []struct {
		title    string
		category string
		level    string
		price    float64
	}{
		{"Go from Zero", "Web Development", "Beginner", 100},
		{"Advanced Go Patterns", "Web Development", "Advanced", 250},
	}

	for _, c := range courses {
		_, err := db.Exec(`
			INSERT INTO courses (id, title, description, category, level, price, slug, tutor_id, created_at, updated_at)
			VALUES ($1, $2, '', $3, $4, $5, $6, $7, $8, $8)
			ON CONFLICT (slug) DO NOTHING`,
			uuid.NewString(), c.title, c.category, c.level, c.price, slug.Make(c.title), ids["TUTOR"], now)
		if err != nil {
			log.Fatalf("failed to seed course %s: %v", c.title, err)
		}
		log.Printf("course %s", c.title)
	}

	log.Println("seed complete")
}
