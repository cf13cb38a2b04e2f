package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"example.com/canview/internal/bundle"
	"example.com/canview/internal/common"
	"example.com/canview/internal/parsesvc"
	"example.com/canview/internal/report"
	"example.com/canview/internal/rows"
	"example.com/canview/internal/stats"
	"example.com/canview/internal/view"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	switch cmd {
	case "decode":
		decodeCmd(os.Args[2:])
	case "show":
		showCmd(os.Args[2:])
	case "sidebar":
		sidebarCmd(os.Args[2:])
	case "export":
		exportCmd(os.Args[2:])
	case "stats":
		statsCmd(os.Args[2:])
	case "batch":
		batchCmd(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`canview %s (built %s) <command> [options]

Commands:
  decode   --config <dir> --protocol <CAN|CANOPEN|COMMON> (--id <hex> --bytes "<b0 b1 ...>" | --name <signal>)
  show     (--in <response.json> | --url <parse service> --file <name.csv>) [--config <dir>] [--protocol <p>] [--search <text>] [--hide <id,id>] [--cap <n>]
  sidebar  (--in <response.json> | --url <parse service> --file <name.csv>) [--config <dir>] [--protocol <p>] [--hide <id,id>]
  export   (--in <response.json> | --url <parse service> --file <name.csv>) --out <view.pdf|view.xlsx|view.json> [--format <pdf|xlsx|json>] [--lang <en|zh>] [--font <ttf>]
  stats    (--in <response.json> | --url <parse service> --file <name.csv>) [--kind <thermal|rate>] [--png <chart.png>]
  batch    --in <dir> --out-dir <dir> [--config <dir>] [--protocol <p>] [--formats <json,xlsx,pdf>]
`, version, buildDate)
}

// viewFlags are the flags shared by every command that opens a view.
type viewFlags struct {
	in        *string
	url       *string
	file      *string
	configDir *string
	protocol  *string
	search    *string
	hide      *string
	rowCap    *int
	timeout   *time.Duration
}

func addViewFlags(fs *flag.FlagSet) *viewFlags {
	return &viewFlags{
		in:        fs.String("in", "", "saved parse service response (JSON)"),
		url:       fs.String("url", "", "parse service base URL"),
		file:      fs.String("file", "", "CSV file name known to the parse service"),
		configDir: fs.String("config", "protocols", "protocol configuration directory"),
		protocol:  fs.String("protocol", bundle.ProtocolCAN, "protocol tag"),
		search:    fs.String("search", "", "case-insensitive search term"),
		hide:      fs.String("hide", "", "comma-separated message ids to hide"),
		rowCap:    fs.Int("cap", rows.DefaultRowCap, "maximum rows to project"),
		timeout:   fs.Duration("timeout", 60*time.Second, "parse service timeout"),
	}
}

type viewOptions struct {
	In        string
	URL       string
	File      string
	ConfigDir string
	Protocol  string
	Hide      []string
	RowCap    int
	Timeout   time.Duration
}

func (f *viewFlags) options() viewOptions {
	return viewOptions{
		In:        *f.in,
		URL:       *f.url,
		File:      *f.file,
		ConfigDir: *f.configDir,
		Protocol:  *f.protocol,
		Hide:      splitList(*f.hide),
		RowCap:    *f.rowCap,
		Timeout:   *f.timeout,
	}
}

// openView builds a session from a saved response or from the parse service.
func openView(opts viewOptions) (*view.Session, error) {
	var (
		res  *parsesvc.Result
		name = opts.File
		err  error
	)
	switch {
	case opts.In != "":
		res, err = readResult(opts.In)
		if name == "" {
			name = csvName(opts.In)
		}
	case opts.URL != "" && opts.File != "":
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err = parsesvc.NewClient(opts.URL).Parse(ctx, opts.File, bundle.NormalizeProtocol(opts.Protocol))
	default:
		return nil, errors.New("required: --in, or --url with --file")
	}
	if err != nil {
		return nil, err
	}
	b := bundle.Load(opts.ConfigDir, opts.Protocol)
	sess := view.NewSession(b.ViewConfig(name, res.Digest, opts.RowCap), res.Data.Table())
	if len(opts.Hide) > 0 {
		sess.Toggle(opts.Hide)
	}
	return sess, nil
}

func readResult(path string) (*parsesvc.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parsesvc.DecodeResult(f)
}

func csvName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func decodeCmd(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	configDir := fs.String("config", "protocols", "protocol configuration directory")
	protocol := fs.String("protocol", bundle.ProtocolCAN, "protocol tag")
	id := fs.String("id", "", "message id (hex)")
	data := fs.String("bytes", "", "space separated data bytes")
	name := fs.String("name", "", "signal name (name matched decoders)")
	fs.Parse(args)

	if *id == "" && *name == "" {
		fmt.Println("required: --id or --name")
		os.Exit(1)
	}
	if err := runDecode(os.Stdout, bundle.Load(*configDir, *protocol), *id, *data, *name); err != nil {
		fmt.Println("decode:", err)
		os.Exit(1)
	}
}

func runDecode(w io.Writer, b *bundle.Bundle, id, data, name string) error {
	var (
		text string
		ok   bool
	)
	if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
		res := b.Definitions.Resolve(id)
		desc := ""
		if res.Known {
			desc = res.Description
		}
		fmt.Fprintln(w, rows.FormatIDDisplay(id, desc))
		text, ok = b.Codec.DecodeData(id, data)
	} else {
		fmt.Fprintln(w, name)
		text, ok = b.Codec.DecodeName(name)
	}
	if !ok {
		return errors.New("no decoder output")
	}
	fmt.Fprintln(w, text)
	return nil
}

func showCmd(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	vf := addViewFlags(fs)
	fs.Parse(args)

	sess, err := openView(vf.options())
	if err != nil {
		fmt.Println("open view:", err)
		os.Exit(1)
	}
	runShow(os.Stdout, sess, *vf.search)
}

func runShow(w io.Writer, sess *view.Session, search string) {
	fmt.Fprintln(w, renderTable(sess.Visible(search), sess.Style, search))
	sum := sess.Summary(search)
	if msg := report.NewTranslator(report.LangEnglish).SummaryMessage(sum); msg != "" {
		fmt.Fprintln(w, noticeStyle.Render(msg))
	}
	fmt.Fprintf(w, "%d of %d rows shown\n", sum.Visible, sum.Projected)
}

func sidebarCmd(args []string) {
	fs := flag.NewFlagSet("sidebar", flag.ExitOnError)
	vf := addViewFlags(fs)
	fs.Parse(args)

	sess, err := openView(vf.options())
	if err != nil {
		fmt.Println("open view:", err)
		os.Exit(1)
	}
	runSidebar(os.Stdout, sess)
}

func runSidebar(out io.Writer, sess *view.Session) {
	entries := sess.Sidebar()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No messages")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DISPLAY ID\tLABEL\tIDS\tHIDDEN")
	for _, e := range entries {
		hidden := "no"
		if e.Filtered {
			hidden = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.DisplayID, e.Label, strings.Join(e.IDs, ","), hidden)
	}
	w.Flush()
}

func exportCmd(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	vf := addViewFlags(fs)
	out := fs.String("out", "", "output file")
	format := fs.String("format", "", "pdf, xlsx or json (default: from --out)")
	langFlag := fs.String("lang", "en", "report language")
	font := fs.String("font", "", "UTF-8 TrueType font for non-English PDF labels")
	fs.Parse(args)

	if *out == "" {
		fmt.Println("required: --out")
		os.Exit(1)
	}
	lang, err := report.ParseLanguage(*langFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	sess, err := openView(vf.options())
	if err != nil {
		fmt.Println("open view:", err)
		os.Exit(1)
	}
	rep := report.FromSession(sess, *vf.search)
	if err := writeExport(rep, *out, *format, lang, *font); err != nil {
		fmt.Println("export:", err)
		os.Exit(1)
	}
	fmt.Println("Wrote:", *out)
}

func writeExport(rep report.ViewReport, out, format string, lang report.Language, font string) error {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	switch strings.ToLower(format) {
	case "pdf":
		return report.SaveViewPDF(rep, out, report.PDFOptions{Lang: lang, FontPath: font})
	case "xlsx":
		return report.SaveViewXLSX(rep, out, lang)
	case "json":
		return report.SaveViewJSON(rep, out)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func statsCmd(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	vf := addViewFlags(fs)
	kind := fs.String("kind", "thermal", "thermal or rate")
	pngPath := fs.String("png", "", "write a chart instead of a table")
	fs.Parse(args)

	sess, err := openView(vf.options())
	if err != nil {
		fmt.Println("open view:", err)
		os.Exit(1)
	}
	if err := runStats(os.Stdout, sess.Table(), *kind, *pngPath); err != nil {
		fmt.Println("stats:", err)
		os.Exit(1)
	}
}

func runStats(out io.Writer, table rows.Table, kind, pngPath string) error {
	var (
		title  string
		series []stats.Series
	)
	switch kind {
	case "thermal":
		th := stats.ThermalSeries(table)
		title, series = "Heat Unit Ratio", []stats.Series{th.Anode, th.Casing}
	case "rate":
		title, series = "Messages per second", []stats.Series{stats.MessageRate(table)}
	default:
		return fmt.Errorf("unknown stats kind %q", kind)
	}
	if pngPath != "" {
		f, err := os.Create(pngPath)
		if err != nil {
			return err
		}
		if err := stats.RenderPNG(f, title, series...); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Wrote chart:", pngPath)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERIES\tTIME\tVALUE")
	for _, s := range series {
		for _, p := range s.Points {
			fmt.Fprintf(w, "%s\t%s\t%g%s\n", s.Name, p.Time, p.Value, s.Unit)
		}
	}
	return w.Flush()
}

func batchCmd(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	inDir := fs.String("in", ".", "directory of saved parse responses")
	outDir := fs.String("out-dir", "out", "results directory")
	configDir := fs.String("config", "protocols", "protocol configuration directory")
	protocol := fs.String("protocol", bundle.ProtocolCAN, "protocol tag")
	formats := fs.String("formats", "json", "comma-separated export formats")
	search := fs.String("search", "", "search term applied to every export")
	hide := fs.String("hide", "", "comma-separated message ids to hide")
	rowCap := fs.Int("cap", rows.DefaultRowCap, "maximum rows to project")
	fs.Parse(args)

	err := runBatch(os.Stdout, batchOptions{
		InDir:   *inDir,
		OutDir:  *outDir,
		Formats: splitList(*formats),
		Search:  *search,
		View: viewOptions{
			ConfigDir: *configDir,
			Protocol:  *protocol,
			Hide:      splitList(*hide),
			RowCap:    *rowCap,
		},
	})
	if err != nil {
		fmt.Println("batch:", err)
		os.Exit(1)
	}
}

type batchOptions struct {
	InDir   string
	OutDir  string
	Formats []string
	Search  string
	View    viewOptions
}

// runBatch exports every saved response under InDir into OutDir/<name>/.
// A failed file is reported and skipped; the error lists how many failed.
func runBatch(out io.Writer, opts batchOptions) error {
	if len(opts.Formats) == 0 {
		opts.Formats = []string{"json"}
	}
	var inputs []string
	err := filepath.WalkDir(opts.InDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			inputs = append(inputs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no parse responses under %s", opts.InDir)
	}
	failed := 0
	for _, in := range inputs {
		name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		if err := exportOne(in, filepath.Join(opts.OutDir, name), opts); err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", in, err)
			failed++
			continue
		}
		sum, size, err := common.Sha256OfFile(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "OK   %s (%s, sha256 %s)\n", in, common.FormatBytes(size), sum[:12])
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(inputs))
	}
	return nil
}

func exportOne(in, dir string, opts batchOptions) error {
	vo := opts.View
	vo.In = in
	sess, err := openView(vo)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	rep := report.FromSession(sess, opts.Search)
	for _, format := range opts.Formats {
		out := filepath.Join(dir, "view."+strings.ToLower(format))
		if err := writeExport(rep, out, format, report.LangEnglish, ""); err != nil {
			return err
		}
	}
	return nil
}
