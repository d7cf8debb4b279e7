// reportctl triggers the report server over HTTP, replacing ad-hoc curl
// invocations for operators and external schedulers.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/go-resty/resty/v2"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: reportctl <command> [flags]

Commands:
  run        trigger the report pipeline (200 even when nothing to report)
  generate   trigger the report pipeline (404 when nothing to report)
  test-pdf   render a report without sending or marking
  time       read or update the sending time`)
	os.Exit(2)
}

func newClient(addr string) *resty.Client {
	return resty.New().SetBaseURL(addr)
}

func printResult(resp *resty.Response, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(resp.Body()))
	if resp.IsError() {
		os.Exit(1)
	}
}

func runCmd(name, path string, flags []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:3006", "report server base URL")
	_ = fs.Parse(flags)

	printResult(newClient(*addr).R().Get(path))
}

func testPDFCmd(flags []string) {
	fs := flag.NewFlagSet("test-pdf", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:3006", "report server base URL")
	sample := fs.Bool("sample", false, "render synthetic orders instead of database rows")
	limit := fs.Int("limit", 0, "maximum number of orders to include")
	includeReported := fs.Bool("include-reported", false, "also include already reported orders")
	out := fs.String("out", "", "download the PDF to this file instead of printing the server response")
	_ = fs.Parse(flags)

	req := newClient(*addr).R().
		SetQueryParam("useTestData", strconv.FormatBool(*sample)).
		SetQueryParam("includeReported", strconv.FormatBool(*includeReported))
	if *limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(*limit))
	}

	if *out != "" {
		req.SetQueryParam("download", "true").SetOutput(*out)
		resp, err := req.Get("/test-pdf")
		if err != nil {
			fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
			os.Exit(1)
		}
		if resp.IsError() {
			fmt.Fprintf(os.Stderr, "server returned %s\n", resp.Status())
			os.Exit(1)
		}
		fmt.Printf("saved %s\n", *out)
		return
	}

	printResult(req.Get("/test-pdf"))
}

func timeCmd(flags []string) {
	fs := flag.NewFlagSet("time", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:3006", "report server base URL")
	set := fs.String("set", "", "new sending time as HH:MM; omit to read the current value")
	_ = fs.Parse(flags)

	client := newClient(*addr)
	if *set == "" {
		printResult(client.R().Get("/sending-time"))
		return
	}
	printResult(client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"time": *set}).
		Post("/sending-time"))
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "run":
		runCmd("run", "/run-report", os.Args[2:])
	case "generate":
		runCmd("generate", "/generate-report", os.Args[2:])
	case "test-pdf":
		testPDFCmd(os.Args[2:])
	case "time":
		timeCmd(os.Args[2:])
	default:
		usage()
	}
}
