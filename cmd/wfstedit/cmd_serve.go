package main

import (
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/idiap/icassp-oov-recognition/internal/provider"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the in-process algorithms over gRPC",
		Long: `Expose arc sorting and trimming as wfst.AlgorithmService. Determinize,
minimize, compose and shortest path answer Unimplemented.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			srv := grpc.NewServer()
			provider.RegisterAlgorithmServiceServer(srv, provider.NewServer(provider.NewLocal()))

			ctx, stop := signal.NotifyContext(a.context(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				srv.GracefulStop()
			}()

			a.logger.Info("serving", "addr", lis.Addr().String())
			return srv.Serve(lis)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:50051", "listen address")
	return cmd
}
