// Command cc is a CLI client for the CyberCompanion service.
package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/term"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/cyber-companion/internal/api"
	"github.com/and161185/cyber-companion/internal/token"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "cybercompanion")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cybercompanion")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (run dev-token)")
	}
	return tf.AccessToken, nil
}

func removeToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

type dialOpts struct {
	addr      string
	caPath    string
	skipCheck bool // TLS without certificate verification
	plaintext bool // no TLS at all, for a server started with -insecure
}

func loadTLS(o dialOpts) (credentials.TransportCredentials, error) {
	switch {
	case o.plaintext:
		return insecure.NewCredentials(), nil
	case o.skipCheck:
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil //nolint:gosec // dev only
	case o.caPath == "":
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(o.caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

func dial(o dialOpts, bearer string) (*grpc.ClientConn, *api.Client, error) {
	creds, err := loadTLS(o)
	if err != nil {
		return nil, nil, err
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithPerRPCCredentials(bearerCreds{token: bearer, secure: !o.plaintext}),
	}
	cc, err := grpc.NewClient(o.addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cc, api.NewClient(cc), nil
}

// ---- utils ----

// readSecret reads without echo from a terminal, or one line from piped stdin.
func readSecret(in *os.File, prompt io.Writer) secretReader {
	return func(label string) (string, error) {
		fd := int(in.Fd())
		if term.IsTerminal(fd) {
			fmt.Fprint(prompt, label)
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(prompt)
			return string(b), err
		}
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// execute sends c and prints the response as JSON.
func execute(ctx context.Context, cl *api.Client, c call, w io.Writer) error {
	req, err := structpb.NewStruct(c.req)
	if err != nil {
		return err
	}
	out, err := cl.Call(ctx, c.method, req)
	if err != nil {
		return err
	}
	printJSON(w, out.AsMap())
	return nil
}

// devToken signs a token locally with the shared key. The real session provider
// issues the same HS256 tokens; this stands in for it during development.
func devToken(args []string, w io.Writer) error {
	fs := newFlagSet("dev-token")
	key := fs.String("key", os.Getenv("CC_JWT_KEY"), "HS256 signing key (or CC_JWT_KEY)")
	sub := fs.String("sub", "", "user uuid (random when empty)")
	name := fs.String("user", "", "display name")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	if *key == "" {
		return fmt.Errorf("need -key: %w", errUsage)
	}
	id := uuid.Must(uuid.NewV4())
	if *sub != "" {
		parsed, err := uuid.FromString(*sub)
		if err != nil {
			return fmt.Errorf("bad -sub: %w", err)
		}
		id = parsed
	}
	now := time.Now()
	tok, err := token.Issue([]byte(*key), id, *name, now, *ttl)
	if err != nil {
		return err
	}
	if err := saveToken(tok, now.Add(*ttl)); err != nil {
		return err
	}
	fmt.Fprintln(w, id.String())
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `cc CLI
Usage:
  cc -addr HOST:PORT [-cacert file | -insecure | -plaintext] [-token JWT] <cmd> [args]

Commands:
  version
  dev-token  -key <hs256 key> [-sub <uuid>] [-user <name>] [-ttl 24h]   (saves token)
  logout
  password   [reads the password without echo]
  action     -type <action_type> [-details '{"k":"v"}']
  breach     -email <addr> [-force]
  mood                                             (recompute, writes diary)
  diary      [-limit N]
  weekly | grade | dashboard | tips
  2fa        on|off
  rename     -name <name> [-type cat|dog|dragon|robot]
  prefs      -email true|false -weekly true|false
  delete-account -yes
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	var o dialOpts
	flag.StringVar(&o.addr, "addr", "localhost:8443", "server addr")
	flag.StringVar(&o.caPath, "cacert", "", "CA cert (PEM)")
	flag.BoolVar(&o.skipCheck, "insecure", false, "skip cert verify (dev)")
	flag.BoolVar(&o.plaintext, "plaintext", false, "no TLS (dev)")
	tokFlag := flag.String("token", "", "bearer token (overrides the saved one)")
	timeout := flag.Duration("timeout", 30*time.Second, "RPC timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	verb, args := flag.Arg(0), flag.Args()[1:]

	switch verb {
	case "version":
		fmt.Printf("cc %s (%s)\n", version, buildDate)
		return
	case "dev-token":
		check(devToken(args, os.Stdout))
		return
	case "logout":
		check(removeToken())
		return
	}

	c, err := buildCall(verb, args, readSecret(os.Stdin, os.Stderr))
	check(err)

	tok := *tokFlag
	if tok == "" {
		tok, err = loadToken()
		check(err)
	}
	conn, cl, err := dial(o, tok)
	check(err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := execute(ctx, cl, c, os.Stdout); err != nil {
		fail(err)
	}
	if c.method == api.MethodDeleteAccount {
		_ = removeToken()
	}
}

// ---- helpers ----

func check(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, err)
		usage()
	}
	fail(err)
}

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
