package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/api/v1/health", s.health)
	s.router.GET("/api/v1/containers", s.containers)
	s.router.GET("/api/v1/items", s.items)
	s.router.GET("/api/v1/sync", s.syncStatus)
}
