/*
udpft - datagram file transferring utility.
Copyright (C) 2021,2022  Kasyanov Nikolay Alexeyevich (Unbewohnte)

This file is a part of udpft

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Unbewohnte/udpft/client"
	"github.com/Unbewohnte/udpft/fsys"
	"github.com/Unbewohnte/udpft/protocol"
	"github.com/Unbewohnte/udpft/transport"
	log "github.com/sirupsen/logrus"
)

var (
	VERSION string = "v1.0.0"

	versionInformation string = fmt.Sprintf("udpclient %s\n\nCopyright (C) 2021,2022  Kasyanov Nikolay Alexeyevich (Unbewohnte)\nThis program comes with ABSOLUTELY NO WARRANTY.\nThis is free software, and you are welcome to redistribute it under certain conditions.\n", VERSION)

	// flags
	DOWNLOADS_DIR *string        = flag.String("d", ".", "Downloads folder")
	TIMEOUT       *time.Duration = flag.Duration("timeout", protocol.InitialTimeout, "Wait of the first attempt of every request, doubled on each retry")
	RETRIES       *int           = flag.Int("retries", protocol.MaxRetries, "Attempts per request")
	CHUNK         *uint64        = flag.Uint64("chunk", protocol.MaxChunkWidth, "Bytes asked for in one request (at most 1000)")
	QUIET         *bool          = flag.Bool("q", false, "Do not print progress")
	VERBOSE       *bool          = flag.Bool("v", false, "Turn on verbose output")
	PRINT_VERSION *bool          = flag.Bool("version", false, "Print version information")

	host     string
	port     uint16
	listPath string
)

func usageError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n\n", args...)
	flag.Usage()
	os.Exit(2)
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "udpclient -[FLAG]... <hostname> <port> <file-list>\n\n")

		fmt.Fprintf(os.Stderr, "[FLAGs]\n\n")
		flag.PrintDefaults()

		fmt.Fprintf(os.Stderr, "\n[Examples]\n\n")

		fmt.Fprintf(os.Stderr, "| udpclient localhost 51234 files.txt\n")
		fmt.Fprintf(os.Stderr, "| downloads every file listed in files.txt (one per line) to the working directory\n\n")

		fmt.Fprintf(os.Stderr, "| udpclient -d /home/user/Downloads/ -timeout 500ms 192.168.1.104 51234 files.txt\n")
		fmt.Fprintf(os.Stderr, "| downloads to \"/home/user/Downloads/\", starting every request with a 500ms wait\n\n")
	}
	flag.Parse()

	if *PRINT_VERSION {
		fmt.Println(versionInformation)
		os.Exit(0)
	}

	if flag.NArg() != 3 {
		usageError("Expected 3 arguments, got %d", flag.NArg())
	}

	host = flag.Arg(0)
	parsed, err := strconv.ParseUint(flag.Arg(1), 10, 16)
	if err != nil || parsed == 0 {
		usageError("Invalid port %q", flag.Arg(1))
	}
	port = uint16(parsed)
	listPath = flag.Arg(2)

	if *RETRIES <= 0 {
		usageError("Invalid amount of retries %d", *RETRIES)
	}
	if *TIMEOUT <= 0 {
		usageError("Invalid timeout %s", *TIMEOUT)
	}
	if *CHUNK == 0 || *CHUNK > protocol.MaxChunkWidth {
		usageError("Chunk width must be within 1 and %d", protocol.MaxChunkWidth)
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *VERBOSE {
		log.SetLevel(log.DebugLevel)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	filenames, err := fsys.LoadFileList(listPath)
	if err != nil {
		log.Errorf("%s", err)
		os.Exit(1)
	}

	serverAddr, err := transport.Resolve(host, port)
	if err != nil {
		log.Errorf("%s", err)
		os.Exit(1)
	}

	options := client.Options{
		ChunkWidth:     *CHUNK,
		Retries:        *RETRIES,
		InitialTimeout: *TIMEOUT,
		DownloadsPath:  *DOWNLOADS_DIR,
	}
	if !*QUIET {
		printer := client.NewDotPrinter(os.Stdout)
		options.OnProgress = printer.Update
		options.OnDone = printer.Done
	}

	c, err := client.NewClient(serverAddr, &options)
	if err != nil {
		log.Errorf("Error constructing a new client: %s", err)
		os.Exit(1)
	}

	results, err := c.DownloadAll(ctx, filenames)

	succeeded := 0
	for _, result := range results {
		if result.Err == nil {
			succeeded++
		}
	}
	log.Infof("Downloaded %d of %d files", succeeded, len(filenames))

	if err != nil {
		os.Exit(1)
	}
}
