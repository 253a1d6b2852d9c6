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

package client

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/Unbewohnte/udpft/checksum"
	"github.com/Unbewohnte/udpft/fsys"
	"github.com/Unbewohnte/udpft/protocol"
	"github.com/Unbewohnte/udpft/transport"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorNotFound   error = fmt.Errorf("file not found on the server")
	ErrorDesync     error = fmt.Errorf("server keeps answering out of sync")
	ErrorUnexpected error = fmt.Errorf("unexpected response")
)

// Outcome of one download
type Result struct {
	Filename       string
	Path           string // where the file has been written; empty if it was not
	Size           uint64
	Requests       int    // GET requests sent, re-requests included
	Checksum       string // blake3 of the downloaded file
	CloseConfirmed bool   // the server answered the CLOSE
	Err            error
}

// Downloads files from one server, one at a time
type Client struct {
	server  net.Addr // welcome address
	options Options
	logger  log.FieldLogger
}

// Creates a new client that will ask server for files.
// The downloads folder is created if it does not exist
func NewClient(server net.Addr, options *Options) (*Client, error) {
	filled := options.withDefaults()

	err := os.MkdirAll(filled.DownloadsPath, os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("could not create downloads folder: %w", err)
	}

	client := Client{
		server:  server,
		options: filled,
		logger:  filled.Logger,
	}

	return &client, nil
}

// Downloads every file in turn. A failed download does not stop the
// following ones; the returned error tells how many have failed
func (c *Client) DownloadAll(ctx context.Context, filenames []string) ([]Result, error) {
	results := make([]Result, 0, len(filenames))

	failed := 0
	for _, filename := range filenames {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		result, err := c.Download(ctx, filename)
		if err != nil {
			failed++
		}
		results = append(results, result)
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d downloads failed", failed, len(filenames))
	}

	return results, nil
}

// Downloads one file into the downloads folder. On failure nothing is left on disk
func (c *Client) Download(ctx context.Context, filename string) (Result, error) {
	result := Result{Filename: filename}

	err := c.download(ctx, filename, &result)
	if err != nil {
		result.Err = err
		c.logger.WithField("file", filename).Errorf("Download failed: %s", err)
	}

	if c.options.OnDone != nil {
		c.options.OnDone(result)
	}

	return result, err
}

func (c *Client) download(ctx context.Context, filename string, result *Result) error {
	if !protocol.ValidFilename(filename) {
		return fmt.Errorf("%w: %q", protocol.ErrorInvalidFilename, filename)
	}

	// every download gets its own socket, so stale answers of a previous
	// transfer never reach this one
	conn, err := transport.Listen(0)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger := c.logger.WithField("file", filename)
	exchanger := transport.NewExchanger(conn, &transport.ExchangerOptions{
		Retries:        c.options.Retries,
		InitialTimeout: c.options.InitialTimeout,
		Logger:         logger,
		OnTimeout:      c.options.OnTimeout,
	})

	accepted, err := c.handshake(ctx, exchanger, filename)
	if err != nil {
		return err
	}
	result.Size = accepted.Size

	logger = logger.WithFields(log.Fields{
		"size": accepted.Size,
		"port": accepted.Port,
	})
	data := transport.WithPort(c.server, accepted.Port)

	output, err := fsys.CreateOutput(c.options.DownloadsPath, filename)
	if err != nil {
		return err
	}

	logger.Infof("Downloading %d bytes", accepted.Size)

	err = c.transfer(ctx, exchanger, data, output, accepted, result, logger)
	if err == nil {
		err = output.Close()
	}
	if err != nil {
		if removeErr := fsys.RemoveOutput(output); removeErr != nil {
			logger.Errorf("Could not remove partial output: %s", removeErr)
		}
		return err
	}
	result.Path = output.Name()

	result.CloseConfirmed = c.close(ctx, exchanger, data, filename, logger)

	digest, err := checksum.GetFileChecksum(result.Path)
	if err != nil {
		logger.Warnf("Could not compute digest: %s", err)
	} else {
		result.Checksum = digest
	}

	logger.WithField("blake3", result.Checksum).Infof("Downloaded to %s", result.Path)

	return nil
}

// Asks the welcome port for the file
func (c *Client) handshake(ctx context.Context, exchanger *transport.Exchanger, filename string) (protocol.DownloadOk, error) {
	response, err := exchanger.Request(ctx, c.server, protocol.Download{Filename: filename})
	if err != nil {
		return protocol.DownloadOk{}, err
	}

	switch response := response.(type) {
	case protocol.DownloadOk:
		if response.Filename == filename {
			return response, nil
		}

	case protocol.DownloadErr:
		if response.Filename == filename {
			return protocol.DownloadOk{}, ErrorNotFound
		}

	default:
		return protocol.DownloadOk{}, fmt.Errorf("%w: server answered DOWNLOAD with neither OK nor ERR", ErrorUnexpected)
	}

	return protocol.DownloadOk{}, fmt.Errorf("%w: server answered for another file %q", ErrorUnexpected, response.File())
}

// Requests the file chunk by chunk, appending every answered range to output
func (c *Client) transfer(
	ctx context.Context,
	exchanger *transport.Exchanger,
	data net.Addr,
	output *os.File,
	accepted protocol.DownloadOk,
	result *Result,
	logger log.FieldLogger,
) error {
	var received uint64 = 0
	var nextStart uint64 = 0

	desync := 0
	for received < accepted.Size {
		requested := protocol.NextRange(nextStart, accepted.Size, c.options.ChunkWidth)

		result.Requests++
		response, err := exchanger.Request(ctx, data, protocol.ChunkGet{
			Filename: accepted.Filename,
			Start:    requested.Start,
			End:      requested.End,
		})
		if err != nil {
			return fmt.Errorf("chunk %s: %w", requested, err)
		}

		chunk, ok := response.(protocol.ChunkOk)
		if !ok || chunk.Filename != accepted.Filename || chunk.Range() != requested || !chunk.Complete() {
			desync++
			if desync > c.options.MaxDesync {
				return fmt.Errorf("%w: chunk %s", ErrorDesync, requested)
			}
			logger.Warnf("Out of sync answer to %s, asking again %d/%d", requested, desync, c.options.MaxDesync)
			continue
		}
		desync = 0

		_, err = output.Write(chunk.Data)
		if err != nil {
			return fmt.Errorf("could not write chunk %s: %w", requested, err)
		}

		received += requested.Len()
		nextStart = requested.End + 1

		logger.Debugf("Received %s", requested)
		if c.options.OnProgress != nil {
			c.options.OnProgress(accepted.Filename, received, accepted.Size)
		}
	}

	return nil
}

// Tells the worker the transfer is over. Failing to confirm is not fatal
func (c *Client) close(ctx context.Context, exchanger *transport.Exchanger, data net.Addr, filename string, logger log.FieldLogger) bool {
	response, err := exchanger.Request(ctx, data, protocol.Close{Filename: filename})
	if err != nil {
		logger.Warnf("Close has not been confirmed: %s", err)
		return false
	}

	closed, ok := response.(protocol.CloseOk)
	if !ok || closed.Filename != filename {
		logger.Warnf("Close has not been confirmed: server answered with something else for %q", response.File())
		return false
	}

	return true
}
