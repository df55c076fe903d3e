package gitserve

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cgi"
	"path/filepath"
	"time"
)

// Server is a running throwaway git server. It is a scoped resource: Start*
// returns a handle and the caller must Shutdown it; the listening socket is
// never left for process exit to reclaim.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	serveErr   chan error

	// URL is the clone URL of the served repository.
	URL string
}

// StartCGI starts a smart-HTTP git server on localhost:port, delegating the
// protocol to the external git-http-backend program. backendPath is the
// resolved path of that binary; projectRoot is the directory containing the
// bare repository. Push is enabled via GIT_HTTP_RECEIVEPACK.
func StartCGI(port int, projectRoot, backendPath string) (*Server, error) {
	handler := &cgi.Handler{
		Path: backendPath,
		Root: "/",
		Env: []string{
			"GIT_PROJECT_ROOT=" + projectRoot,
			"GIT_HTTP_EXPORT_ALL=1",
			"GIT_HTTP_RECEIVEPACK=1",
		},
		InheritEnv: []string{"PATH"},
	}

	srv, err := start(port, handler, false, "", "")
	if err != nil {
		return nil, err
	}
	srv.URL = fmt.Sprintf("http://localhost:%d/%s", port, BareRepoName)
	return srv, nil
}

// StartDumbTLS starts a dumb-HTTP git server over TLS on localhost:port,
// statically serving the bare repository's files. Clients can clone and
// fetch (the post-update hook keeps info/refs current) but pushing fails:
// there is no receive-pack endpoint, which is exactly the error path the
// smoke sequence asserts.
func StartDumbTLS(port int, barePath, certFile, keyFile string) (*Server, error) {
	prefix := "/" + BareRepoName
	handler := http.StripPrefix(prefix, http.FileServer(http.Dir(filepath.Clean(barePath))))

	srv, err := start(port, handler, true, certFile, keyFile)
	if err != nil {
		return nil, err
	}
	srv.URL = fmt.Sprintf("https://localhost:%d/%s", port, BareRepoName)
	return srv, nil
}

// start binds the listener synchronously so a port conflict surfaces as an
// immediate error instead of a hung first request, then serves in the
// background.
func start(port int, handler http.Handler, useTLS bool, certFile, keyFile string) (*Server, error) {
	addr := fmt.Sprintf("localhost:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
		serveErr: make(chan error, 1),
	}

	go func() {
		var err error
		if useTLS {
			err = srv.httpServer.ServeTLS(listener, certFile, keyFile)
		} else {
			err = srv.httpServer.Serve(listener)
		}
		if err != nil && err != http.ErrServerClosed {
			srv.serveErr <- err
		}
		close(srv.serveErr)
	}()

	return srv, nil
}

// Shutdown stops the server and releases the listening socket. It reports
// any background serve failure that occurred during the run.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.httpServer.Close()
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	if err, ok := <-s.serveErr; ok && err != nil {
		return fmt.Errorf("server failed during run: %w", err)
	}
	return nil
}
