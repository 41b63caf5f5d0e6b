package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	analysisDelivery "kifu_editor/internal/delivery/analysis"
	"kifu_editor/internal/kifu"
)

var (
	streamAddr    string
	streamPointer string
)

var streamCmd = &cobra.Command{
	Use:   "stream <document-id>",
	Short: "Fetch the move stream of an open document over gRPC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := grpc.NewClient(streamAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		stream, err := analysisDelivery.NewClient(conn).GetStream(ctx, args[0], kifu.TesuuPointer(streamPointer))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stream)
	},
}

func init() {
	streamCmd.Flags().StringVar(&streamAddr, "addr", "localhost:8082", "Address of the analysis gRPC server")
	streamCmd.Flags().StringVar(&streamPointer, "pointer", "", "Cursor as a tesuu pointer, the session cursor when empty")
}
