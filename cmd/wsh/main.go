// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/xtaci/wsh/keystore"
	"github.com/xtaci/wsh/proto"
	"github.com/xtaci/wsh/session"
	"github.com/xtaci/wsh/transport"
	"github.com/xtaci/wsh/wsh"
)

// VERSION is injected by buildflags
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	app := cli.NewApp()
	app.Name = "wsh"
	app.Usage = "authenticated multiplexed shell client"
	app.Version = VERSION
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "url, u",
			Value: "wss://127.0.0.1:29900",
			Usage: `server address, "wss://host:port" or "https://host:port"`,
		},
		cli.StringFlag{
			Name:   "username, l",
			Value:  os.Getenv("USER"),
			Usage:  "username presented in HELLO",
			EnvVar: "WSH_USERNAME",
		},
		cli.StringFlag{
			Name:   "password",
			Usage:  "password auth secret (mutually exclusive with --key-name)",
			EnvVar: "WSH_PASSWORD",
		},
		cli.StringFlag{
			Name:  "keystore",
			Value: "~/.wsh/keystore",
			Usage: "path to the encrypted key-store backup file",
		},
		cli.StringFlag{
			Name:   "passphrase",
			Usage:  "passphrase protecting --keystore",
			EnvVar: "WSH_PASSPHRASE",
		},
		cli.StringFlag{
			Name:  "key-name",
			Usage: "name of the key-store entry used for pubkey auth",
		},
		cli.BoolFlag{
			Name:  "compress",
			Usage: "enable compression on the data streams",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: 30 * time.Second,
			Usage: "handshake/operation timeout",
		},
	}
	app.Commands = []cli.Command{
		shellCommand,
		execCommand,
		uploadCommand,
		downloadCommand,
		toolsCommand,
		reverseCommand,
		keysCommand,
	}
	if err := app.Run(os.Args); err != nil {
		color.Red("%+v", err)
		os.Exit(-1)
	}
}

// connectOptions builds wsh.ConnectOptions from the global flags, loading a
// pubkey from the key-store when --key-name is set.
func connectOptions(c *cli.Context) (wsh.ConnectOptions, error) {
	opts := wsh.ConnectOptions{
		URL:      c.GlobalString("url"),
		Username: c.GlobalString("username"),
		Timeout:  c.GlobalDuration("timeout"),
		Transport: &transport.Options{
			Compress: c.GlobalBool("compress"),
		},
	}
	keyName := c.GlobalString("key-name")
	if keyName != "" {
		store, err := openKeystore(c)
		if err != nil {
			return opts, err
		}
		kp, err := store.Get(keyName)
		if err != nil {
			return opts, err
		}
		opts.Credentials = wsh.Credentials{KeyPair: kp}
		return opts, nil
	}
	opts.Credentials = wsh.Credentials{Password: c.GlobalString("password")}
	return opts, nil
}

// openKeystore loads the key-store backup named by --keystore, decrypting it
// with --passphrase. A missing file is not an error: it means the key-store
// is empty so far.
func openKeystore(c *cli.Context) (*keystore.Store, error) {
	path := expandHome(c.GlobalString("keystore"))
	store := keystore.New()
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "wsh: read key-store")
	}
	if _, _, err := store.Restore(blob, c.GlobalString("passphrase")); err != nil {
		return nil, err
	}
	return store, nil
}

// saveKeystore re-encrypts every exportable key in store and writes it back
// to --keystore, creating the parent directory if needed.
func saveKeystore(c *cli.Context, store *keystore.Store) error {
	path := expandHome(c.GlobalString("keystore"))
	blob, err := store.Backup(c.GlobalString("passphrase"))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(parentDir(path), 0700); err != nil {
		return errors.Wrap(err, "wsh: create key-store directory")
	}
	return os.WriteFile(path, blob, 0600)
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

var shellCommand = cli.Command{
	Name:  "shell",
	Usage: "open an interactive pty and relay it to stdin/stdout",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "command", Usage: "command to run instead of the default login shell"},
	},
	Action: func(c *cli.Context) error {
		opts, err := connectOptions(c)
		if err != nil {
			return err
		}
		client := wsh.NewClient()
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		if err := client.Connect(ctx, opts); err != nil {
			cancel()
			return err
		}
		cancel()
		defer client.Disconnect()

		done := make(chan struct{})
		var closeOnce sync.Once
		signalDone := func() { closeOnce.Do(func() { close(done) }) }

		sess, err := client.OpenPTY(context.Background(), c.String("command"), 80, 24, nil, func(p []byte) {
			os.Stdout.Write(p)
		})
		if err != nil {
			return err
		}

		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt)
		go func() {
			<-sigc
			sess.Close()
		}()

		go func() {
			ticker := time.NewTicker(200 * time.Millisecond)
			defer ticker.Stop()
			for range ticker.C {
				if sess.State() == session.StateClosed {
					signalDone()
					return
				}
			}
		}()

		go func() {
			reader := bufio.NewReader(os.Stdin)
			buf := make([]byte, 4096)
			for {
				n, err := reader.Read(buf)
				if n > 0 {
					if _, werr := sess.Write(buf[:n]); werr != nil {
						signalDone()
						return
					}
				}
				if err != nil {
					signalDone()
					return
				}
			}
		}()

		<-done
		return nil
	},
}

var execCommand = cli.Command{
	Name:      "exec",
	Usage:     "run a command to completion on a one-shot channel",
	ArgsUsage: "-- <command>",
	Action: func(c *cli.Context) error {
		command := ""
		if c.NArg() > 0 {
			command = c.Args().First()
			for _, a := range c.Args().Tail() {
				command += " " + a
			}
		}
		opts, err := connectOptions(c)
		if err != nil {
			return err
		}
		res, err := wsh.Exec(context.Background(), wsh.ExecOptions{
			URL:         opts.URL,
			Username:    opts.Username,
			Credentials: opts.Credentials,
			Command:     command,
			Deadline:    c.GlobalDuration("timeout"),
		})
		if err != nil {
			return err
		}
		os.Stdout.Write(res.Stdout)
		if res.ExitCode != 0 {
			os.Exit(int(res.ExitCode))
		}
		return nil
	},
}

var uploadCommand = cli.Command{
	Name:      "upload",
	Usage:     "copy a local file to the remote side",
	ArgsUsage: "<local-path> <remote-path>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return errors.New("wsh: upload requires <local-path> <remote-path>")
		}
		f, err := os.Open(c.Args().Get(0))
		if err != nil {
			return errors.Wrap(err, "wsh: open local file")
		}
		defer f.Close()

		opts, err := connectOptions(c)
		if err != nil {
			return err
		}
		client := wsh.NewClient()
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		err = client.Connect(ctx, opts)
		cancel()
		if err != nil {
			return err
		}
		defer client.Disconnect()

		return client.Upload(context.Background(), c.Args().Get(1), f, func(n int64) {
			fmt.Fprintf(os.Stderr, "\rsent %d bytes", n)
		})
	},
}

var downloadCommand = cli.Command{
	Name:      "download",
	Usage:     "copy a remote file to the local side",
	ArgsUsage: "<remote-path> <local-path>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return errors.New("wsh: download requires <remote-path> <local-path>")
		}
		f, err := os.Create(c.Args().Get(1))
		if err != nil {
			return errors.Wrap(err, "wsh: create local file")
		}
		defer f.Close()

		opts, err := connectOptions(c)
		if err != nil {
			return err
		}
		client := wsh.NewClient()
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		err = client.Connect(ctx, opts)
		cancel()
		if err != nil {
			return err
		}
		defer client.Disconnect()

		return client.Download(context.Background(), c.Args().Get(0), f, func(n int64) {
			fmt.Fprintf(os.Stderr, "\rreceived %d bytes", n)
		})
	},
}

var toolsCommand = cli.Command{
	Name:  "tools",
	Usage: "discover and invoke remote MCP-style tools",
	Subcommands: []cli.Command{
		{
			Name:  "list",
			Usage: "list tools the server exposes",
			Action: func(c *cli.Context) error {
				client, err := connectedClient(c)
				if err != nil {
					return err
				}
				defer client.Disconnect()
				tools, err := client.DiscoverTools(0)
				if err != nil {
					return err
				}
				for _, t := range tools {
					fmt.Printf("%s\t%s\n", t.Name, t.Description)
				}
				return nil
			},
		},
		{
			Name:      "call",
			Usage:     "call a tool by name with a JSON argument object",
			ArgsUsage: "<name> [json-args]",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					return errors.New("wsh: tools call requires <name>")
				}
				args := map[string]interface{}{}
				if c.NArg() > 1 {
					if err := json.Unmarshal([]byte(c.Args().Get(1)), &args); err != nil {
						return errors.Wrap(err, "wsh: parse json args")
					}
				}
				client, err := connectedClient(c)
				if err != nil {
					return err
				}
				defer client.Disconnect()
				result, err := client.CallTool(c.Args().Get(0), args, 0)
				if err != nil {
					return err
				}
				enc, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(enc))
				return nil
			},
		},
	},
}

var reverseCommand = cli.Command{
	Name:  "reverse",
	Usage: "register as a reverse peer and list/connect to other peers",
	Subcommands: []cli.Command{
		{
			Name:  "register",
			Usage: "announce this client as a reverse peer",
			Flags: []cli.Flag{
				cli.StringSliceFlag{Name: "capability", Usage: "repeatable capability tag to advertise"},
			},
			Action: func(c *cli.Context) error {
				opts, err := connectOptions(c)
				if err != nil {
					return err
				}
				if opts.Credentials.KeyPair == nil {
					return errors.New("wsh: reverse register requires --key-name")
				}
				client := wsh.NewClient()
				ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
				err = client.Connect(ctx, opts)
				cancel()
				if err != nil {
					return err
				}
				caps := []string(c.StringSlice("capability"))
				err = client.RegisterReverse(opts.Username, caps, opts.Credentials.KeyPair, func(rec proto.Record) {
					log.Printf("wsh: relay message: %T", rec)
				})
				if err != nil {
					client.Disconnect()
					return err
				}
				color.Green("registered as reverse peer %q, waiting for connections (ctrl-c to quit)", opts.Username)
				sigc := make(chan os.Signal, 1)
				signal.Notify(sigc, os.Interrupt)
				<-sigc
				return client.Disconnect()
			},
		},
		{
			Name:  "list",
			Usage: "list currently registered reverse peers",
			Action: func(c *cli.Context) error {
				client, err := connectedClient(c)
				if err != nil {
					return err
				}
				defer client.Disconnect()
				peers, err := client.ListPeers()
				if err != nil {
					return err
				}
				for _, p := range peers {
					fmt.Printf("%s\t%s\t%v\n", p.Fingerprint, p.Username, p.Capabilities)
				}
				return nil
			},
		},
		{
			Name:      "connect",
			Usage:     "request a reverse connection to a peer by fingerprint",
			ArgsUsage: "<fingerprint>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("wsh: reverse connect requires <fingerprint>")
				}
				client, err := connectedClient(c)
				if err != nil {
					return err
				}
				defer client.Disconnect()
				return client.ConnectToPeer(c.Args().Get(0))
			},
		},
	},
}

var keysCommand = cli.Command{
	Name:  "keys",
	Usage: "manage the local key-store",
	Subcommands: []cli.Command{
		{
			Name:      "generate",
			Usage:     "generate a new key pair under a name",
			ArgsUsage: "<name>",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "extractable", Usage: "allow this key's private material to be included in Backup"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("wsh: keys generate requires <name>")
				}
				store, err := openKeystore(c)
				if err != nil {
					return err
				}
				if _, err := store.Generate(c.Args().Get(0), c.Bool("extractable")); err != nil {
					return err
				}
				return saveKeystore(c, store)
			},
		},
		{
			Name:  "list",
			Usage: "list key-store entry names",
			Action: func(c *cli.Context) error {
				store, err := openKeystore(c)
				if err != nil {
					return err
				}
				for _, name := range store.List() {
					fmt.Println(name)
				}
				return nil
			},
		},
		{
			Name:      "export",
			Usage:     "print a key's public half in ssh-ed25519 format",
			ArgsUsage: "<name>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("wsh: keys export requires <name>")
				}
				store, err := openKeystore(c)
				if err != nil {
					return err
				}
				line, err := store.ExportPublicKey(c.Args().Get(0))
				if err != nil {
					return err
				}
				fmt.Println(line)
				return nil
			},
		},
		{
			Name:      "delete",
			Usage:     "remove a key-store entry",
			ArgsUsage: "<name>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("wsh: keys delete requires <name>")
				}
				store, err := openKeystore(c)
				if err != nil {
					return err
				}
				if err := store.Delete(c.Args().Get(0)); err != nil {
					return err
				}
				return saveKeystore(c, store)
			},
		},
	},
}

// connectedClient is the shared helper for subcommands that just need an
// authenticated Client and no special post-auth setup.
func connectedClient(c *cli.Context) (*wsh.Client, error) {
	opts, err := connectOptions(c)
	if err != nil {
		return nil, err
	}
	client := wsh.NewClient()
	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	if err := client.Connect(ctx, opts); err != nil {
		return nil, err
	}
	return client, nil
}
