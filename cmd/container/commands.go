package container

import (
	"fmt"
	"github.com/ValentinKolb/xceiver/rpc/client"
	"github.com/spf13/cobra"
	"strconv"
	"strings"
)

var (
	echoCmd = &cobra.Command{
		Use:   "echo [payload]",
		Short: "Sends a payload to the leader and prints the echo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Echo(cmd.Context(), xceiverClient, []byte(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(string(resp))
			return nil
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [containerID] [localID] [value]",
		Short: "Writes a chunk, the container is created if it does not exist",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			containerID, localID, err := parseChunkAddress(args[0], args[1])
			if err != nil {
				return err
			}
			if err := client.PutChunk(cmd.Context(), xceiverClient, containerID, localID, []byte(args[2])); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [containerID] [localID]",
		Short: "Reads a chunk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			containerID, localID, err := parseChunkAddress(args[0], args[1])
			if err != nil {
				return err
			}
			data, err := client.ReadChunk(cmd.Context(), xceiverClient, containerID, localID)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [containerID] [localID]",
		Short: "Deletes a chunk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			containerID, localID, err := parseChunkAddress(args[0], args[1])
			if err != nil {
				return err
			}
			if err := client.DeleteChunk(cmd.Context(), xceiverClient, containerID, localID); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list [containerID]",
		Short: "Lists the local ids of all chunks of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			containerID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("containerID must be a number: %w", err)
			}
			ids, err := client.ListChunks(cmd.Context(), xceiverClient, containerID)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("(empty)")
				return nil
			}
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = strconv.FormatUint(id, 10)
			}
			fmt.Println(strings.Join(parts, "\n"))
			return nil
		},
	}
)

// parseChunkAddress parses the container and local id arguments of a chunk command
func parseChunkAddress(container, local string) (uint64, uint64, error) {
	containerID, err := strconv.ParseUint(container, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("containerID must be a number: %w", err)
	}
	localID, err := strconv.ParseUint(local, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("localID must be a number: %w", err)
	}
	return containerID, localID, nil
}
