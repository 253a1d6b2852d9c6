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

	"github.com/Unbewohnte/udpft/protocol"
	"github.com/Unbewohnte/udpft/server"
	log "github.com/sirupsen/logrus"
)

var (
	VERSION string = "v1.0.0"

	versionInformation string = fmt.Sprintf("udpserver %s\n\nCopyright (C) 2021,2022  Kasyanov Nikolay Alexeyevich (Unbewohnte)\nThis program comes with ABSOLUTELY NO WARRANTY.\nThis is free software, and you are welcome to redistribute it under certain conditions.\n", VERSION)

	// flags
	ROOT          *string        = flag.String("root", ".", "Directory to serve files from")
	PORTS         *string        = flag.String("ports", server.DefaultPorts.String(), "Range of ports for data channels")
	IDLE          *time.Duration = flag.Duration("idle", 0, "Drop sessions idle for that long (0 never drops them)")
	POLL          *time.Duration = flag.Duration("poll", protocol.PollInterval, "How often sockets check for a shutdown")
	VERBOSE       *bool          = flag.Bool("v", false, "Turn on verbose output")
	PRINT_VERSION *bool          = flag.Bool("version", false, "Print version information")

	port  uint16
	ports server.PortRange
)

func usageError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n\n", args...)
	flag.Usage()
	os.Exit(2)
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "udpserver -[FLAG]... <port>\n\n")

		fmt.Fprintf(os.Stderr, "[FLAGs]\n\n")
		flag.PrintDefaults()

		fmt.Fprintf(os.Stderr, "\n[Examples]\n\n")

		fmt.Fprintf(os.Stderr, "| udpserver 51234\n")
		fmt.Fprintf(os.Stderr, "| serves files of the working directory, welcoming clients on port 51234\n\n")

		fmt.Fprintf(os.Stderr, "| udpserver -root /srv/files -ports 40000-40100 -idle 5m 51234\n")
		fmt.Fprintf(os.Stderr, "| serves /srv/files with data channels on ports 40000 to 40100, dropping sessions idle for 5 minutes\n\n")
	}
	flag.Parse()

	if *PRINT_VERSION {
		fmt.Println(versionInformation)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		usageError("Expected exactly one argument, the welcome port")
	}

	parsed, err := strconv.ParseUint(flag.Arg(0), 10, 16)
	if err != nil || parsed == 0 {
		usageError("Invalid port %q", flag.Arg(0))
	}
	port = uint16(parsed)

	ports, err = server.ParsePortRange(*PORTS)
	if err != nil {
		usageError("%s", err)
	}
	if ports.Contains(port) {
		usageError("Welcome port %d is inside the data port range %s", port, ports)
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *VERBOSE {
		log.SetLevel(log.DebugLevel)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(&server.Options{
		Port:         port,
		Root:         *ROOT,
		Ports:        ports,
		PollInterval: *POLL,
		IdleTimeout:  *IDLE,
		Digest:       *VERBOSE,
	})
	if err != nil {
		log.Errorf("Error constructing a new server: %s", err)
		os.Exit(1)
	}

	err = srv.Serve(ctx)
	if err != nil {
		log.Errorf("Server stopped: %s", err)
		os.Exit(1)
	}
}
