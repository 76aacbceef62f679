package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

func main() {
	connStr := flag.String("db", os.Getenv("DATABASE_URL"), "postgres connection string")
	olderThan := flag.Duration("older-than", 30*24*time.Hour, "delete payments older than this")
	flag.Parse()

	if *connStr == "" {
		fmt.Fprintln(os.Stderr, "no database configured: pass -db or set DATABASE_URL")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *connStr)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	cutoff := time.Now().Add(-*olderThan)
	res, err := db.Exec("DELETE FROM payments WHERE detected_at < $1", cutoff)
	if err != nil {
		panic(err)
	}

	rows, _ := res.RowsAffected()
	fmt.Printf("Deleted %d payments detected before %s\n", rows, cutoff.Format(time.RFC3339))
}
