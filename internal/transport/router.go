package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the tracker's query endpoints.
func NewRouter(handler *TrackerHandler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", handler.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/status", handler.Status).Methods(http.MethodGet)
	v1.HandleFunc("/cursor", handler.Cursor).Methods(http.MethodGet)
	v1.HandleFunc("/blocks/hash/{hash}", handler.BlockByHash).Methods(http.MethodGet)
	v1.HandleFunc("/blocks/{height}", handler.BlockByHeight).Methods(http.MethodGet)
	v1.HandleFunc("/transactions/{txid}", handler.TransactionByID).Methods(http.MethodGet)
	v1.HandleFunc("/addresses/{address}/transactions", handler.AddressTransactions).Methods(http.MethodGet)

	return router
}
