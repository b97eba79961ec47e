package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"transsfera/internal/config"
)

// ApiDependencies — зависимости HTTP-слоя, обслуживающего WebApp формы.
type ApiDependencies struct {
	Config *config.Config
}

// SetupRoutes регистрирует маршруты API для WebApp формы заказа.
// Сама форма — статика, отдаваемая файловым сервером из main.
func SetupRoutes(r chi.Router, deps ApiDependencies) {
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/config", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"bot_username": deps.Config.BotUsername,
			"webapp_url":   deps.Config.WebAppURL,
		})
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("writeJSON: ошибка сериализации ответа: %v", err)
	}
}
