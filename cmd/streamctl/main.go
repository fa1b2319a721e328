package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/grpc_control"
	"github.com/ahfrd/grpc-stream-client-side/src/transport"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// -----------------------------------------------------------------------------
// streamctl drives a running client through its gRPC control plane. It is the
// command line sibling of the REST lifecycle endpoints, useful from scripts
// and from machines that only reach the control port.
//
//	streamctl -addr 127.0.0.1:50052 connect
//	streamctl disconnect
//	streamctl params -filter lq45 -sort total_volume
//	streamctl state
// -----------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", "127.0.0.1:50052", "control plane address of the running client")
	timeout := flag.Duration("timeout", 5*time.Second, "per command timeout")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	// Same wire codec as the data plane, no generated stubs involved.
	conn, err := grpc.NewClient(
		*addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(transport.JSONCodec{})),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out, err := run(ctx, conn, command, flag.Args()[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printJSON(out)
}

// -----------------------------------------------------------------------------

func run(ctx context.Context, conn *grpc.ClientConn, command string, args []string) (interface{}, error) {
	switch command {
	case "connect":
		out := &grpc_control.MControlResponse{}
		return out, conn.Invoke(ctx, grpc_control.MethodConnect, &grpc_control.MControlRequest{}, out)

	case "disconnect":
		out := &grpc_control.MControlResponse{}
		return out, conn.Invoke(ctx, grpc_control.MethodDisconnect, &grpc_control.MControlRequest{}, out)

	case "params":
		fs := flag.NewFlagSet("params", flag.ExitOnError)
		filter := fs.String("filter", "", "board filter (all, idx30, lq45, idx80, kompas100)")
		sort := fs.String("sort", "", "sort key (code, price, change, percent_change, total_volume, value, total_freq)")
		fs.Parse(args)

		req := &grpc_control.MParametersRequest{Filter: *filter, SortKey: *sort}
		out := &grpc_control.MControlResponse{}
		return out, conn.Invoke(ctx, grpc_control.MethodSetParameters, req, out)

	case "state":
		out := &grpc_control.MStateResponse{}
		return out, conn.Invoke(ctx, grpc_control.MethodGetState, &grpc_control.MControlRequest{}, out)

	default:
		usage()
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

// -----------------------------------------------------------------------------

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-addr host:port] [-timeout d] <connect|disconnect|params|state> [options]\n", os.Args[0])
	flag.PrintDefaults()
}
