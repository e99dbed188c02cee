package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wagnerlima/knowledgeflow/internal/config"
	"github.com/wagnerlima/knowledgeflow/internal/server"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
)

func (a *app) serveCmd() *cobra.Command {
	var transport, port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio or HTTP",
		Long: `Run the MCP server. AI tools are registered only when ai.provider is set.
Logs go to stderr so stdout stays free for the stdio transport.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("transport") {
				a.cfg.Server.Transport = transport
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			mode, err := a.treeMode()
			if err != nil {
				return err
			}
			agent, err := a.agent(cmd.Context())
			if errors.Is(err, errNoProvider) {
				a.log.Info("AI tools disabled", zap.String("reason", err.Error()))
				agent = nil
			} else if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
				srv := server.New(s, server.Options{Agent: agent, TreeMode: mode, Log: a.log})
				return serve(ctx, srv, a.cfg.Server, a.log)
			})
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().StringVar(&port, "port", "8081", "HTTP port (only used with --transport http)")
	return cmd
}

// serve runs srv until ctx is cancelled.
func serve(ctx context.Context, srv *mcp.Server, cfg config.ServerConfig, log *zap.Logger) error {
	switch cfg.Transport {
	case "stdio":
		log.Info("knowledgeflow MCP server starting (stdio)")
		err := srv.Run(ctx, &mcp.StdioTransport{})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case "http":
		addr := ":" + cfg.Port
		handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return srv
		}, nil)
		hs := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("knowledgeflow MCP server listening", zap.String("addr", addr))
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
		return g.Wait()
	}
	return fmt.Errorf("unknown transport: %s (use stdio or http)", cfg.Transport)
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print changes to the JSON collection files until interrupted",
		Long: `Print a line whenever a collection file in the data directory is written
or removed, including changes made by other processes. JSON backend only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.jsonStore(cmd, func(ctx context.Context, s *storage.JSONStore) error {
				events, err := s.Watch(ctx)
				if err != nil {
					return err
				}
				a.log.Debug("watching", zap.String("dir", s.Dir()))
				out := cmd.OutOrStdout()
				enc := json.NewEncoder(out)
				for ev := range events {
					if a.asJSON {
						err = enc.Encode(ev)
					} else {
						_, err = fmt.Fprintf(out, "%s %s %s\n", time.Now().Format(time.TimeOnly), ev.Op, ev.Collection)
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func (a *app) repairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Move unreadable JSON collection files aside and start them empty",
		Long: `Check every JSON collection file. A file that does not parse is renamed to
<file>.corrupt-<unix time> and replaced by an empty collection. JSON backend only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.jsonStore(cmd, func(ctx context.Context, s *storage.JSONStore) error {
				repaired, err := s.Repair(ctx)
				if err != nil {
					return err
				}
				return a.emit(cmd, map[string][]string{"repaired": repaired}, func(p *printer) {
					if len(repaired) == 0 {
						p.line("all collections are readable")
						return
					}
					for _, name := range repaired {
						p.line("reset %s (old file kept beside it)", name)
					}
				})
			})
		},
	}
}
