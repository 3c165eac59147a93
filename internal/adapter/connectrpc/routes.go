package connectrpc

import (
	"net/http"

	"connectrpc.com/connect"
)

// Services groups the connect services exposed by the HTTP server.
type Services struct {
	Stats     *StatsServiceServer
	Sync      *SyncServiceServer
	Migration *MigrationServiceServer
}

// NewHandler mounts every service on one mux. The JSON codec is always
// installed; opts typically carry interceptors.
func NewHandler(services Services, opts ...connect.HandlerOption) http.Handler {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(NewStatsServiceHandler(services.Stats, opts...))
	mux.Handle(NewSyncServiceHandler(services.Sync, opts...))
	mux.Handle(NewMigrationServiceHandler(services.Migration, opts...))
	return mux
}

func serviceHandler(name string, procedures map[string]http.Handler) (string, http.Handler) {
	return "/" + name + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := procedures[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
