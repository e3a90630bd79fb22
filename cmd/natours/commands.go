package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"natours/config"
	"natours/domain/tour"
	"natours/server"
)

type rootOptions struct {
	configFile string
	envPrefix  string
}

func (o *rootOptions) server() *server.Server {
	return server.NewServer(server.WithConfigSource(o.configFile, o.envPrefix))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "natours",
		Short:         "Natours tours API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", config.DefaultFile, "dotenv config file, ignored when missing")
	root.PersistentFlags().StringVar(&opts.envPrefix, "env-prefix", config.DefaultPrefix, "environment variable prefix")

	root.AddCommand(newServeCmd(opts), newImportCmd(opts), newDeleteCmd(opts), newMigrateCmd(opts))
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := opts.server()
			// 先加载配置，引擎与服务共用同一个日志
			if err := srv.LoadConfig(); err != nil {
				return err
			}
			return server.NewEngine(srv, server.WithLogger(srv.Logger())).Start()
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load tours from a JSON array file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var tours []*tour.Tour
			if err := json.Unmarshal(data, &tours); err != nil {
				return fmt.Errorf("failed to parse %s: %w", file, err)
			}
			return withServices(cmd.Context(), opts, func(ctx context.Context, srv *server.Server) error {
				n, err := srv.Tours().Import(ctx, tours)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Data successfully loaded: %d tours\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with an array of tours")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete all tours",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), opts, func(ctx context.Context, srv *server.Server) error {
				n, err := srv.Tours().DeleteAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Data successfully deleted: %d tours\n", n)
				return nil
			})
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := opts.server()
			if err := srv.LoadConfig(); err != nil {
				return err
			}
			ctx := cmd.Context()
			err := srv.OpenStore(ctx)
			if cerr := srv.Shutdown(ctx); err == nil {
				err = cerr
			}
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			}
			return err
		},
	}
}

// withServices 装配完整依赖并启动消息传输，写操作的事件可以通知正在运行的实例
func withServices(ctx context.Context, opts *rootOptions, fn func(context.Context, *server.Server) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	srv := opts.server()
	if err := srv.LoadConfig(); err != nil {
		return err
	}
	err := srv.SetupDependencies(ctx)
	if err == nil {
		err = srv.StartBackgroundTasks(ctx)
	}
	if err == nil {
		err = fn(ctx, srv)
	}
	if cerr := srv.Shutdown(context.WithoutCancel(ctx)); err == nil {
		err = cerr
	}
	return err
}
