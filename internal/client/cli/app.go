// Package cli is the command-line front end: argument parsing, prompts and
// output formatting. All transfer and key handling lives in the service.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/filedrop/internal/client/api"
	"github.com/dmitrijs2005/filedrop/internal/client/config"
	"github.com/dmitrijs2005/filedrop/internal/client/service"
)

// configFlags are handled by the config package and skipped here; the flags
// listed with a trailing marker consume a value argument.
var configFlags = map[string]bool{"-a": true, "-o": true, "-t": true, "-c": true, "-config": true}

type App struct {
	config  *config.Config
	service *service.Service
}

func NewApp(cfg *config.Config) (*App, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server URL is not configured")
	}
	return &App{
		config:  cfg,
		service: service.New(api.New(cfg.ServerURL), cfg.ServerURL),
	}, nil
}

// Run dispatches on the first positional argument.
func (a *App) Run(ctx context.Context) error {
	cmd, args, passphrase := splitArgs(os.Args[1:])

	switch cmd {
	case "send":
		return a.send(ctx, args, passphrase)
	case "push":
		return a.push(ctx, args)
	case "fetch":
		return a.fetch(ctx, args)
	case "revoke":
		return a.revoke(ctx, args)
	case "", "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (a *App) send(ctx context.Context, paths []string, passphrase bool) error {
	if len(paths) == 0 {
		return fmt.Errorf("usage: filedrop send [-p] <file>...")
	}

	var res *service.SendResult
	var err error

	if passphrase {
		var pw []byte
		pw, err = GetPassphrase(os.Stdout, "Enter passphrase: ")
		if err != nil {
			return err
		}
		res, err = a.service.SendWithPassphrase(ctx, paths, pw)
	} else {
		res, err = a.service.Send(ctx, paths)
	}
	if err != nil {
		return err
	}

	fmt.Println("Share link (valid until", res.ExpiresAt.Format("2006-01-02 15:04 MST")+"):")
	fmt.Println(res.Link)
	return nil
}

func (a *App) push(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("usage: filedrop push -t <token> <file>...")
	}
	if a.config.AuthToken == "" {
		return fmt.Errorf("push requires an identity token (-t)")
	}

	for _, path := range paths {
		id, err := a.service.DirectUpload(ctx, a.config.AuthToken, path)
		if err != nil {
			return err
		}
		fmt.Println("Uploaded", path, "as", id)
	}
	return nil
}

func (a *App) fetch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: filedrop fetch [-o dir] <link>")
	}

	written, err := a.service.Fetch(ctx, args[0], a.config.OutputDir, func() ([]byte, error) {
		return GetPassphrase(os.Stdout, "Enter passphrase: ")
	})
	if err != nil {
		return err
	}

	for _, path := range written {
		fmt.Println("Saved", path)
	}
	return nil
}

func (a *App) revoke(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: filedrop revoke <link>")
	}
	if err := a.service.Revoke(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("Revoked.")
	return nil
}

// splitArgs separates the command and its operands from the flags consumed
// by the config package, and picks up the -p/-passphrase switch.
func splitArgs(args []string) (cmd string, operands []string, passphrase bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "-p" || arg == "-passphrase" {
			passphrase = true
			continue
		}
		if strings.HasPrefix(arg, "-") {
			name := strings.SplitN(arg, "=", 2)[0]
			if configFlags[name] {
				// Skip the value when it is a separate argument.
				if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
					i++
				}
			}
			continue
		}

		if cmd == "" {
			cmd = arg
		} else {
			operands = append(operands, arg)
		}
	}
	return cmd, operands, passphrase
}

func usage() {
	fmt.Println(`FileDrop CLI

Usage:
  filedrop send [-p] <file>...       encrypt and upload, print a share link
  filedrop fetch [-o dir] <link>     download and decrypt a share link
  filedrop revoke <link>             delete the shared object
  filedrop push -t <token> <file>... upload into your catalog via a signed PUT

Flags:
  -a url    server base URL
  -o dir    output directory for fetch
  -p        protect the link with a passphrase instead of an embedded key
  -t token  identity token for owner-scoped commands
  -c file   JSON config file`)
}
