// simulate drives the webhook callback endpoint of a locally-running server
// with fabricated hub traffic, so the intake path can be exercised without
// registering real subscriptions.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
)

var fs = flag.NewFlagSet("simulate", flag.ExitOnError)

type Command struct {
	name     string
	initFunc func()
	runFunc  func(callbackUrl string) (*http.Request, error)
}

var commands = []Command{
	{"live", initLiveCommand, runLiveCommand},
	{"offline", initOfflineCommand, runOfflineCommand},
	{"challenge", initChallengeCommand, runChallengeCommand},
}

func main() {
	// We only want to simulate notifications locally; events recorded in the
	// production event logs should only come from the hub itself
	callbackUrl := "http://localhost:5004/callback"

	if len(os.Args) < 2 {
		die()
	}
	for _, command := range commands {
		if command.name == os.Args[1] {
			command.initFunc()
			fs.Parse(os.Args[2:])

			req, err := command.runFunc(callbackUrl)
			if err != nil {
				log.Fatalf("Failed to prepare request: %v", err)
			}
			res, err := http.DefaultClient.Do(req)
			if err != nil {
				log.Fatalf("Failed to send request: %v", err)
			}
			defer res.Body.Close()
			body, err := io.ReadAll(res.Body)
			if err != nil {
				log.Fatalf("Failed to read response body: %v", err)
			}
			fmt.Printf("Got %d response: %s\n", res.StatusCode, body)
			return
		}
	}
	die()
}

func die() {
	names := make([]string, 0, len(commands))
	for _, command := range commands {
		names = append(names, command.name)
	}
	fmt.Printf("usage: simulate %v [flags]\n", names)
	os.Exit(1)
}
