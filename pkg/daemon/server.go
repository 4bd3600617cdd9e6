package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/jsonrpc2"
	"golang.org/x/sync/errgroup"
	"src.calc.sh/pkg/daemon/api"
	"src.calc.sh/pkg/store"
	"src.calc.sh/pkg/store/storedefs"
)

// ServeOpts keeps options that can be passed to Serve.
type ServeOpts struct {
	// If not nil, will be closed when the daemon is ready to serve requests.
	Ready chan<- struct{}
	// Causes the daemon to abort if closed or sent any date. If nil, Serve will
	// set up its own signal channel by listening to SIGINT and SIGTERM.
	Signals <-chan os.Signal
	// If not nil, overrides the response of the version RPC.
	Version *int
	// If not empty, the daemon also serves websocket clients on /rpc and
	// Prometheus metrics on /metrics at this address.
	HTTPAddr string
	// If not nil, used instead of listening on HTTPAddr.
	HTTPListener net.Listener
}

// Serve runs the daemon service, listening on the socket specified by sockpath
// and serving data from dbpath until all clients have exited. See doc for
// ServeOpts for additional options.
func Serve(sockpath, dbpath string, opts ServeOpts) int {
	logger.Println("pid is", syscall.Getpid())
	logger.Println("going to listen", sockpath)
	listener, err := net.Listen("unix", sockpath)
	if err != nil {
		logger.Printf("failed to listen on %s: %v", sockpath, err)
		logger.Println("aborting")
		return 2
	}

	httpListener := opts.HTTPListener
	if httpListener == nil && opts.HTTPAddr != "" {
		httpListener, err = net.Listen("tcp", opts.HTTPAddr)
		if err != nil {
			logger.Printf("failed to listen on %s: %v", opts.HTTPAddr, err)
			logger.Println("serving on the socket only")
		}
	}

	var st storedefs.Store
	dbStore, storeErr := store.NewStore(dbpath)
	if storeErr != nil {
		logger.Printf("failed to create storage: %v", storeErr)
		logger.Printf("serving anyway")
	} else {
		st = dbStore
	}

	version := api.Version
	if opts.Version != nil {
		version = *opts.Version
	}
	m := newMetrics()
	svc := newService(version, st, storeErr, m)
	handler := svc.handler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Streams of new connections, from both the socket and the websocket
	// endpoint.
	streamCh := make(chan jsonrpc2.ObjectStream, 10)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return err
			}
			select {
			case streamCh <- jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{}):
			case <-gctx.Done():
				conn.Close()
				return gctx.Err()
			}
		}
	})
	var httpServer *http.Server
	if httpListener != nil {
		logger.Println("serving websocket and metrics on", httpListener.Addr())
		mux := http.NewServeMux()
		mux.Handle("/rpc", wsHandler(streamCh, gctx.Done()))
		mux.Handle("/metrics", m.handler())
		httpServer = &http.Server{Handler: mux}
		g.Go(func() error {
			err := httpServer.Serve(httpListener)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}
	// Stop all listeners when one of them fails or when the daemon exits.
	g.Go(func() error {
		<-gctx.Done()
		listener.Close()
		if httpServer != nil {
			httpServer.Close()
		}
		return nil
	})
	listenErrCh := make(chan error, 1)
	go func() {
		listenErrCh <- g.Wait()
		close(listenErrCh)
	}()

	sigCh := opts.Signals
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(ch)
		sigCh = ch
	}

	conns := make(map[*jsonrpc2.Conn]struct{})
	connDoneCh := make(chan *jsonrpc2.Conn, 10)

	interrupt := func() {
		if len(conns) == 0 {
			logger.Println("exiting since there are no clients")
		}
		logger.Printf("going to close %v active connections", len(conns))
		for conn := range conns {
			// Ignore the error - if we can't close the connection it's because
			// the client has closed it. There is nothing we can do anyway.
			conn.Close()
		}
	}

	if opts.Ready != nil {
		close(opts.Ready)
	}

loop:
	for {
		select {
		case sig := <-sigCh:
			logger.Printf("received signal %v", sig)
			interrupt()
			break loop
		case err := <-listenErrCh:
			// Only the first receive is meaningful; disable this case
			// afterwards.
			listenErrCh = nil
			logger.Println("could not listen:", err)
			if len(conns) == 0 {
				logger.Println("exiting since there are no clients")
				break loop
			}
			logger.Println("continuing to serve until all existing clients exit")
		case stream := <-streamCh:
			conn := jsonrpc2.NewConn(ctx, stream, handler)
			conns[conn] = struct{}{}
			m.connections.Set(float64(len(conns)))
			go func() {
				select {
				case <-conn.DisconnectNotify():
				case <-ctx.Done():
					return
				}
				select {
				case connDoneCh <- conn:
				case <-ctx.Done():
				}
			}()
		case conn := <-connDoneCh:
			delete(conns, conn)
			svc.hub.dropConn(conn)
			m.connections.Set(float64(len(conns)))
			if len(conns) == 0 {
				logger.Println("all clients disconnected, exiting")
				break loop
			}
		}
	}

	// Stops the listeners and the goroutines watching connections.
	cancel()
	err = os.Remove(sockpath)
	if err != nil {
		logger.Printf("failed to remove socket %s: %v", sockpath, err)
	}
	if dbStore != nil {
		err = dbStore.Close()
		if err != nil {
			logger.Printf("failed to close storage: %v", err)
		}
	}
	// Ensure that the listener goroutines have exited before returning.
	g.Wait()
	return 0
}
