// Embedded schema migrations, applied in order by the Migrator.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create students table
-- Version: 001

CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    display_name VARCHAR(100) NOT NULL,
    password_hash VARCHAR(100) NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_students_email ON students(email);
CREATE INDEX IF NOT EXISTS idx_students_active ON students(active) WHERE active = TRUE;
`

const migration001Down = `
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create enrollments table
-- Version: 002

CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES students(id),
    course_id UUID NOT NULL,
    price_cents BIGINT NOT NULL,
    currency CHAR(3) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending_payment',
    enrollment_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    activation_date TIMESTAMP WITH TIME ZONE,
    completion_date TIMESTAMP WITH TIME ZONE,
    payment_id UUID,
    cancel_reason TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL DEFAULT 1,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_enrollment_status CHECK (status IN ('pending_payment', 'active', 'completed', 'cancelled')),
    CONSTRAINT valid_price CHECK (price_cents >= 0),
    CONSTRAINT valid_version CHECK (version >= 1)
);

-- At most one non-cancelled enrollment per (student, course). Cancelled
-- enrollments stay in history and do not block re-enrollment.
CREATE UNIQUE INDEX IF NOT EXISTS uq_enrollments_student_course_live
    ON enrollments(student_id, course_id) WHERE status != 'cancelled';

CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments(student_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_status ON enrollments(status);
`

const migration002Down = `
DROP TABLE IF EXISTS enrollments;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE PAYMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create payments table
-- Version: 003

CREATE TABLE IF NOT EXISTS payments (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES students(id),
    enrollment_id UUID NOT NULL REFERENCES enrollments(id),
    amount_cents BIGINT NOT NULL,
    currency CHAR(3) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    transaction_id VARCHAR(100) NOT NULL DEFAULT '',
    failure_reason TEXT NOT NULL DEFAULT '',
    refund_reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_payment_status CHECK (status IN ('pending', 'successful', 'failed', 'refunded', 'cancelled', 'unknown')),
    CONSTRAINT valid_amount CHECK (amount_cents >= 0)
);

CREATE INDEX IF NOT EXISTS idx_payments_enrollment ON payments(enrollment_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_payments_student ON payments(student_id);
`

const migration003Down = `
DROP TABLE IF EXISTS payments;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create learning progress tables
-- Version: 004

-- One history per student; the row id doubles as the student id.
CREATE TABLE IF NOT EXISTS learning_histories (
    id UUID PRIMARY KEY REFERENCES students(id),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS course_progress (
    id UUID PRIMARY KEY,
    learning_history_id UUID NOT NULL REFERENCES learning_histories(id),
    course_id UUID NOT NULL,
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    last_updated TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_course_progress_history_course UNIQUE (learning_history_id, course_id)
);

CREATE TABLE IF NOT EXISTS completed_lessons (
    id UUID PRIMARY KEY,
    course_progress_id UUID NOT NULL REFERENCES course_progress(id),
    lesson_id UUID NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Idempotency anchor: the same lesson is recorded at most once per
    -- course progress, no matter how many times the request retries.
    CONSTRAINT uq_completed_lessons_progress_lesson UNIQUE (course_progress_id, lesson_id)
);

CREATE INDEX IF NOT EXISTS idx_course_progress_history ON course_progress(learning_history_id);
CREATE INDEX IF NOT EXISTS idx_completed_lessons_progress ON completed_lessons(course_progress_id);
`

const migration004Down = `
DROP TABLE IF EXISTS completed_lessons;
DROP TABLE IF EXISTS course_progress;
DROP TABLE IF EXISTS learning_histories;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: CREATE CERTIFICATES
// ══════════════════════════════════════════════════════════════════════════════

const migration005Up = `
-- Migration: Create certificates table
-- Version: 005

CREATE TABLE IF NOT EXISTS certificates (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES students(id),
    course_id UUID NOT NULL,
    title VARCHAR(200) NOT NULL,
    number VARCHAR(20) NOT NULL UNIQUE,
    issue_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    score INTEGER,
    feedback TEXT NOT NULL DEFAULT '',

    -- Exactly one certificate per (student, course). Concurrent issuers
    -- race on this index; the loser gets the winner's certificate back.
    CONSTRAINT uq_certificates_student_course UNIQUE (student_id, course_id),
    CONSTRAINT valid_score CHECK (score IS NULL OR (score >= 0 AND score <= 100))
);

CREATE INDEX IF NOT EXISTS idx_certificates_student ON certificates(student_id, issue_date DESC);
`

const migration005Down = `
DROP TABLE IF EXISTS certificates;
`
