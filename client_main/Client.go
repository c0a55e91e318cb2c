package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"webhdfs/hdfs"
)

const usage = `usage: Client [flags] OP [ARGS]

ops:
  status PATH          file status as JSON
  checksum PATH        file checksum as JSON
  rename SRC DST
  mkdir PATH [PERM]    octal permission, default 775
  list [PATH]          directory listing as JSON
  ls [PATH]            entry names
  lsh [PATH]           long listing with human readable sizes
  getrf PATH
  setrf PATH RF
  rm PATH [-r]
  exists PATH
  isdir PATH
  isfile PATH

flags:
`

var errUsage = errors.New("bad usage")

func main() {
	// go run Client.go -host localhost ls /user/hadoop
	// go run Client.go -conf webhdfs.yaml mkdir /user/hadoop/tmp 755
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "XXX", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("Client", flag.ContinueOnError)
	flags.SetOutput(stderr)
	confPath := flags.String("conf", "", "YAML client config")
	host := flags.String("host", "", "namenode host (overrides -conf)")
	port := flags.Int("port", 0, "namenode WebHDFS port (overrides -conf)")
	user := flags.String("user", "", "user.name (overrides -conf)")
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return errUsage
	}

	conf := &hdfs.Config{}
	if *confPath != "" {
		// flags may still supply the host; NewClient validates
		loaded, err := hdfs.ReadConfig(*confPath)
		if err != nil {
			return err
		}
		conf = loaded
	}
	if *host != "" {
		conf.Host = *host
	}
	if *port != 0 {
		conf.Port = *port
	}
	if *user != "" {
		conf.User = *user
	}
	if conf.LogFile != "" {
		conf.Logger = conf.NewLogger()
		defer conf.Logger.Sync()
	}

	client, err := hdfs.NewClient(conf)
	if err != nil {
		return err
	}

	cmd := &command{client: client, out: stdout}
	op, rest := flags.Arg(0), flags.Args()[1:]
	if err := cmd.exec(ctx, op, rest); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "%s: %v\n", op, err)
			flags.Usage()
		}
		return err
	}
	return nil
}

type command struct {
	client *hdfs.Client
	out    io.Writer
}

func (cmd *command) exec(ctx context.Context, op string, args []string) error {
	switch op {
	case "status":
		if len(args) != 1 {
			return errUsage
		}
		st, err := cmd.client.FileStatus(ctx, args[0])
		if err != nil {
			return err
		}
		return cmd.json(st)

	case "checksum":
		if len(args) != 1 {
			return errUsage
		}
		sum, err := cmd.client.FileChecksum(ctx, args[0])
		if err != nil {
			return err
		}
		return cmd.json(sum)

	case "rename":
		if len(args) != 2 {
			return errUsage
		}
		return cmd.boolean(cmd.client.Rename(ctx, args[0], args[1]))

	case "mkdir":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		var perm os.FileMode
		if len(args) == 2 {
			v, err := hdfs.ParsePermission(args[1])
			if err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}
			perm = v
		}
		return cmd.boolean(cmd.client.Mkdir(ctx, args[0], perm))

	case "list":
		statuses, err := cmd.client.List(ctx, pathArg(args))
		if err != nil {
			return err
		}
		return cmd.json(statuses)

	case "ls":
		names, err := cmd.client.Ls(ctx, pathArg(args))
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.out, name)
		}
		return nil

	case "lsh":
		statuses, err := cmd.client.List(ctx, pathArg(args))
		if err != nil {
			return err
		}
		return cmd.long(statuses)

	case "getrf":
		if len(args) != 1 {
			return errUsage
		}
		rf, err := cmd.client.GetReplication(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.out, rf)
		return nil

	case "setrf":
		if len(args) != 2 {
			return errUsage
		}
		rf, err := strconv.ParseInt(args[1], 10, 16)
		if err != nil {
			return fmt.Errorf("%w: replication %q", errUsage, args[1])
		}
		return cmd.boolean(cmd.client.SetReplication(ctx, args[0], int16(rf)))

	case "rm":
		switch {
		case len(args) == 1:
			return cmd.boolean(cmd.client.Delete(ctx, args[0], false))
		case len(args) == 2 && args[1] == "-r":
			return cmd.boolean(cmd.client.Delete(ctx, args[0], true))
		}
		return errUsage

	case "exists", "isdir", "isfile":
		if len(args) != 1 {
			return errUsage
		}
		pred := map[string]func(context.Context, string) (bool, error){
			"exists": cmd.client.Exists,
			"isdir":  cmd.client.IsDir,
			"isfile": cmd.client.IsFile,
		}[op]
		return cmd.boolean(pred(ctx, args[0]))
	}
	return fmt.Errorf("%w: unknown op %q", errUsage, op)
}

func pathArg(args []string) string {
	if len(args) == 0 {
		return "/"
	}
	return args[0]
}

func (cmd *command) json(v interface{}) error {
	enc := json.NewEncoder(cmd.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cmd *command) boolean(ok bool, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.out, ok)
	return nil
}

// long prints one `hdfs dfs -ls -h` style line per entry.
func (cmd *command) long(statuses []hdfs.FileStatus) error {
	w := tabwriter.NewWriter(cmd.out, 0, 0, 1, ' ', tabwriter.AlignRight)
	for _, st := range statuses {
		rf := "-"
		if !st.IsDir() {
			rf = strconv.Itoa(int(st.Replication))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t %s\n",
			st.Mode(), rf, st.Owner, st.Group,
			humanize.IBytes(uint64(st.Length)),
			st.ModTime().Format("2006-01-02 15:04"),
			st.PathSuffix)
	}
	return w.Flush()
}
