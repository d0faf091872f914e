// Package server runs the optional status HTTP server alongside a
// download session.
//
// The server lives exactly as long as the context given to Run:
//
//	srv := server.New(app, server.WithHost("127.0.0.1:9464"))
//	go srv.Run(ctx)
//	<-srv.Ready()
//	log.Info("status", "addr", srv.Addr())
package server
