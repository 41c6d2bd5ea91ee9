package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labi-le/pasteboard/internal/metadata"
	"github.com/labi-le/pasteboard/internal/notification"
	"github.com/labi-le/pasteboard/pkg/mime"
	"github.com/labi-le/pasteboard/pkg/pasteboard"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

const usage = `pbcli - read and write the system pasteboard

Usage:
	pbcli [flags] <command> [text...]

Commands:
	read        print the text of the first string item
	read-data   print the plain text of the first item, save its attachment with --out
	types       list the type identifiers of the first item
	write       replace the pasteboard with text (arguments or stdin)
	write-data  replace the pasteboard with text plus the --attachment file
	version     print version

Flags:
`

// board is the part of *pasteboard.Pasteboard the commands use.
type board interface {
	Read() (string, error)
	ReadData() (string, []byte, error)
	ReadBuffer() ([]string, error)
	Write(text string) error
	WriteData(text string, data []byte) error
}

type action struct {
	verbose     bool
	notify      bool
	showVersion bool
	showHelp    bool

	attachment string
	out        string
	maxSize    uint64
}

func parseFlags(args []string) (action, []string, error) {
	var (
		act        action
		maxSizeRaw string
		fs         = flag.NewFlagSet("pbcli", flag.ContinueOnError)
	)

	fs.BoolVar(&act.verbose, "verbose", false, "Verbose logs")
	fs.BoolVar(&act.notify, "notify", false, "Show a desktop notification after a write")
	fs.BoolVarP(&act.showVersion, "version", "v", false, "Show version")
	fs.BoolVarP(&act.showHelp, "help", "h", false, "Show help")
	fs.StringVarP(&act.attachment, "attachment", "a", "", "File whose bytes become the attachment (write-data)")
	fs.StringVarP(&act.out, "out", "o", "", "File the attachment is saved to (read-data)")
	fs.StringVar(&maxSizeRaw, "max_size", "64MiB", "Maximum size of text or attachment accepted for a write")

	fs.Usage = func() {
		_, _ = fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return act, nil, err
	}

	size, err := humanize.ParseBytes(maxSizeRaw)
	if err != nil {
		return act, nil, fmt.Errorf("invalid max_size format: %w", err)
	}
	act.maxSize = size

	return act, fs.Args(), nil
}

func main() {
	act, args, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := initLogger(act.verbose)

	if act.showHelp || len(args) == 0 && !act.showVersion {
		_, _ = fmt.Fprint(os.Stderr, usage)
		return
	}

	if act.showVersion || args[0] == "version" {
		_, _ = fmt.Println(metadata.String())
		return
	}

	pb, err := pasteboard.New(pasteboard.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open pasteboard")
	}
	defer pb.Close()

	err = run(pb, act, args, os.Stdin, os.Stdout, notification.New(act.notify), logger)
	if err != nil {
		logger.Error().Err(err).Str("command", args[0]).Msg("command failed")
		_ = pb.Close()
		os.Exit(exitCode(err))
	}
}

func run(pb board, act action, args []string, stdin io.Reader, stdout io.Writer, notifier notification.Notifier, logger zerolog.Logger) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "read":
		text, err := pb.Read()
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, text)
		return err

	case "read-data":
		text, data, err := pb.ReadData()
		if err != nil {
			return err
		}

		logger.Info().
			Str("size", humanize.Bytes(uint64(len(data)))).
			Stringer("kind", mime.From(data)).
			Msg("attachment")

		if act.out != "" {
			if err := os.WriteFile(act.out, data, 0o600); err != nil {
				return fmt.Errorf("save attachment: %w", err)
			}
		}

		_, err = io.WriteString(stdout, text)
		return err

	case "types":
		types, err := pb.ReadBuffer()
		if err != nil {
			return err
		}
		for _, typ := range types {
			if _, err := fmt.Fprintf(stdout, "%s\t%s\n", typ, mime.FromUTI(typ)); err != nil {
				return err
			}
		}
		return nil

	case "write":
		text, err := inputText(rest, stdin, act.maxSize)
		if err != nil {
			return err
		}
		if err := pb.Write(text); err != nil {
			return err
		}
		notifier.Notify("copied %s of text", humanize.Bytes(uint64(len(text))))
		return nil

	case "write-data":
		if act.attachment == "" {
			return errors.New("write-data needs --attachment")
		}
		data, err := readAttachment(act.attachment, act.maxSize)
		if err != nil {
			return err
		}
		text, err := inputText(rest, stdin, act.maxSize)
		if err != nil {
			return err
		}
		if err := pb.WriteData(text, data); err != nil {
			return err
		}
		notifier.Notify("copied %s of text with a %s attachment",
			humanize.Bytes(uint64(len(text))), humanize.Bytes(uint64(len(data))))
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// inputText joins args, or reads stdin when there are none.
func inputText(args []string, stdin io.Reader, limit uint64) (string, error) {
	if len(args) > 0 {
		text := strings.Join(args, " ")
		if uint64(len(text)) > limit {
			return "", fmt.Errorf("text exceeds max_size %s", humanize.Bytes(limit))
		}
		return text, nil
	}

	b, err := readLimited(stdin, limit)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

func readAttachment(path string, limit uint64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	b, err := readLimited(f, limit)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	return b, nil
}

func readLimited(r io.Reader, limit uint64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) > limit {
		return nil, fmt.Errorf("input exceeds max_size %s", humanize.Bytes(limit))
	}
	return b, nil
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, pasteboard.ErrNoCompatibleData):
		return 1
	case errors.Is(err, pasteboard.ErrWriteRejected):
		return 3
	case errors.Is(err, pasteboard.ErrResourceUnavailable):
		return 4
	default:
		return 2
	}
}

func initLogger(verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}

	if verbose {
		zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
			short := file
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					short = file[i+1:]
					break
				}
			}
			file = short
			return fmt.Sprintf("%s:%d", file, line)
		}
		return zerolog.New(output).
			Level(zerolog.TraceLevel).
			With().
			Timestamp().
			Caller().
			Logger()
	}

	return zerolog.New(output).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()
}
