package main

import (
	"context"
	"fmt"
	"log"

	"github.com/evacroute/evacroute_core/internal/cache"
	"github.com/evacroute/evacroute_core/internal/db"
)

func main() {
	ctx := context.Background()

	cfg := db.LoadConfigFromEnv()
	fmt.Println("🔗 Testing database connection...")
	fmt.Printf("   Host: %s:%d\n", cfg.Host, cfg.Port)
	fmt.Printf("   User: %s\n", cfg.User)
	fmt.Printf("   Database: %s\n\n", cfg.Database)

	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("❌ Failed to connect: %v\n", err)
	}
	defer db.Close()

	fmt.Println("✅ Connection successful!")

	// Check PostgreSQL version
	var pgVersion string
	if err := pool.QueryRow(ctx, "SELECT version()").Scan(&pgVersion); err != nil {
		log.Printf("⚠️  Could not get PostgreSQL version: %v\n", err)
	} else {
		fmt.Printf("📊 PostgreSQL Version:\n   %s\n\n", pgVersion)
	}

	// Check existing tables
	fmt.Println("📋 Checking existing tables...")
	rows, err := pool.Query(ctx, `
		SELECT tablename
		FROM pg_tables
		WHERE schemaname = 'public'
		ORDER BY tablename
	`)
	if err != nil {
		log.Printf("⚠️  Could not list tables: %v\n", err)
	} else {
		defer rows.Close()
		tableCount := 0
		for rows.Next() {
			var tablename string
			if err := rows.Scan(&tablename); err != nil {
				continue
			}
			fmt.Printf("   - %s\n", tablename)
			tableCount++
		}
		if tableCount == 0 {
			fmt.Println("   (no tables found - run the importer with --init-schema)")
		}
		fmt.Printf("\n   Total: %d tables\n", tableCount)
	}

	// Check Redis
	fmt.Println("\n🔗 Testing Redis connection...")
	if err := cache.HealthCheck(ctx); err != nil {
		fmt.Printf("⚠️  Redis unavailable: %v\n", err)
		fmt.Println("   → Route caching and plan locking will be disabled")
	} else {
		fmt.Println("✅ Redis connection successful!")
	}

	fmt.Println("\n✅ Connection test completed!")
}
