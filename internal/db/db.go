// Файл: internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var DB *sql.DB // Глобальная переменная для хранения подключения к БД

// InitDB инициализирует соединение с базой данных и создает схему.
func InitDB() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL не установлена")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(10)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("ошибка проверки соединения с базой данных: %v", err)
	}

	log.Println("Успешное подключение к базе данных.")

	// Одна запись на заявку; история отказов не хранится, запись при
	// отказе удаляется целиком.
	createTablesSQL := `
        CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            public_code VARCHAR(10) NOT NULL,
            client_chat_id BIGINT NOT NULL,
            username TEXT DEFAULT '',
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            from_location TEXT NOT NULL,
            to_location TEXT NOT NULL,
            adults INTEGER NOT NULL DEFAULT 0,
            children INTEGER NOT NULL DEFAULT 0,
            baggage INTEGER NOT NULL DEFAULT 0,
            name TEXT NOT NULL,
            phone TEXT NOT NULL,
            has_viber BOOLEAN DEFAULT FALSE,
            has_telegram BOOLEAN DEFAULT FALSE,
            has_whatsapp BOOLEAN DEFAULT FALSE,
            comment TEXT DEFAULT '',
            price FLOAT,
            accepted BOOLEAN DEFAULT FALSE,
            created_at TIMESTAMP NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_orders_client_chat_id ON orders (client_chat_id);
    `
	if _, err := DB.Exec(createTablesSQL); err != nil {
		return fmt.Errorf("ошибка создания таблицы orders: %v", err)
	}

	log.Println("Схема базы данных проверена.")
	return nil
}

// CloseDB закрывает соединение с базой данных.
func CloseDB() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			log.Printf("Ошибка закрытия соединения с БД: %v", err)
		} else {
			log.Println("Соединение с базой данных закрыто.")
		}
	}
}
