package repository

// Schema returns the idempotent DDL the engine needs. Price, sentiment,
// prediction, and result tables use ReplacingMergeTree so replayed inserts
// collapse to a single row; correlations are plain append-only history.
func Schema(database string) []string {
	if database == "" {
		database = "signalengine"
	}
	d := database
	return []string{
		`CREATE DATABASE IF NOT EXISTS ` + d,

		`CREATE TABLE IF NOT EXISTS ` + d + `.instruments (
			symbol     String,
			name       String,
			sector     String,
			active     UInt8,
			created_at DateTime,
			updated_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY symbol`,

		`CREATE TABLE IF NOT EXISTS ` + d + `.price_bars (
			symbol String,
			date   Date,
			open   Float64,
			high   Float64,
			low    Float64,
			close  Float64,
			volume Int64
		) ENGINE = ReplacingMergeTree
		PARTITION BY toYYYYMM(date)
		ORDER BY (symbol, date)`,

		`CREATE TABLE IF NOT EXISTS ` + d + `.sentiment (
			symbol      String,
			ts          DateTime,
			source      LowCardinality(String),
			score       Float64,
			label       LowCardinality(String),
			document_id String,
			rationale   String
		) ENGINE = ReplacingMergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, source, document_id)`,

		`CREATE TABLE IF NOT EXISTS ` + d + `.correlations (
			symbol_a    String,
			symbol_b    String,
			computed_at DateTime,
			coefficient Float64,
			sample_size UInt32,
			significant UInt8
		) ENGINE = MergeTree
		PARTITION BY toYYYYMM(computed_at)
		ORDER BY (computed_at, symbol_a, symbol_b)`,

		`CREATE TABLE IF NOT EXISTS ` + d + `.predictions (
			id           String,
			symbol       String,
			cycle_date   Date,
			target_date  Date,
			horizon_days UInt16,
			strategy     LowCardinality(String),
			direction    LowCardinality(String),
			confidence   Float64,
			rationale    String,
			created_at   DateTime
		) ENGINE = ReplacingMergeTree
		ORDER BY (symbol, cycle_date)`,

		`CREATE TABLE IF NOT EXISTS ` + d + `.results (
			prediction_id   String,
			symbol          String,
			strategy        LowCardinality(String),
			evaluated_at    DateTime,
			realized_dir    LowCardinality(String),
			realized_return Float64,
			correct         UInt8
		) ENGINE = ReplacingMergeTree
		ORDER BY prediction_id`,

		`CREATE TABLE IF NOT EXISTS ` + d + `.strategy_performance (
			strategy     LowCardinality(String),
			scope        String,
			hit_rate     Float64,
			sample_count UInt32,
			updated_at   DateTime
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (strategy, scope)`,
	}
}
