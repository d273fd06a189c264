package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS accrual_config (
    id                   INTEGER PRIMARY KEY CHECK (id = 1),
    starting_amount      TEXT NOT NULL,
    monthly_income       TEXT NOT NULL,
    current_amount       TEXT,
    updated_at           TEXT NOT NULL
);
`
