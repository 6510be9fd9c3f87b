package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fxnlabs/gpuprim/pkg/workclient"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Printf("Usage: %s <workload_type> <payload_json>\n", os.Args[0])
		fmt.Println("Example: send_workload SCAN '{\"data\":[1,2,3]}'")
		os.Exit(1)
	}

	workloadType := strings.ToUpper(os.Args[1])
	payload := os.Args[2]

	url := os.Getenv("GPUPRIM_URL")
	if url == "" {
		url = "http://localhost:8090"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := workclient.NewClient(url, nil)
	body := fmt.Sprintf(`{"type":%q,"payload":%s}`, workloadType, payload)
	resp, err := client.SendRaw(ctx, []byte(body))
	if err != nil {
		fmt.Printf("Error sending workload: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Response: %s\n", string(resp.Result))
}
