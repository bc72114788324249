package configurator

import (
	"encoding/xml"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/thoreinstein/platconf/internal/env"
	"github.com/thoreinstein/platconf/internal/logging"
	"github.com/thoreinstein/platconf/internal/urlutil"
)

// FeatureManifest is the file name of a feature manifest inside its
// directory.
const FeatureManifest = "feature.xml"

// Parser errors.
var (
	// ErrNoFeatureElement indicates the document has no <feature> element.
	ErrNoFeatureElement = errors.New("no feature element")

	// ErrEnvironmentMismatch indicates the feature's os/ws/arch/nl filters
	// exclude the running environment.
	ErrEnvironmentMismatch = errors.New("feature does not match environment")
)

// FeatureParser reads the root element of feature.xml files. Only the
// attributes of the first <feature> element are consulted; decoding stops
// as soon as it has been seen.
type FeatureParser struct {
	fs      afero.Fs
	env     env.Environment
	install *url.URL
	logger  *slog.Logger
}

// NewFeatureParser returns a parser reading through fs. install is the
// base used to make non-file sources absolute.
func NewFeatureParser(fs afero.Fs, e env.Environment, install *url.URL, logger *slog.Logger) *FeatureParser {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FeatureParser{
		fs:      fs,
		env:     e,
		install: install,
		logger:  logging.OrDiscard(logger),
	}
}

// Parse reads the feature manifest at u. It returns nil when the manifest
// cannot be read, is invalid, or is filtered out by the environment; the
// cause is logged and the caller skips the feature.
func (p *FeatureParser) Parse(u *url.URL) *FeatureEntry {
	fp, err := urlutil.ToPath(u)
	if err != nil {
		p.logger.Warn("cannot read feature manifest", "url", u, "error", err)
		return nil
	}

	f, err := p.fs.Open(fp)
	if err != nil {
		p.logger.Warn("cannot open feature manifest", "path", fp, "error", err)
		return nil
	}
	defer f.Close()

	entry, err := p.ParseReader(f, u)
	switch {
	case err == nil:
		return entry
	case errors.Is(err, ErrEnvironmentMismatch):
		p.logger.Debug("feature skipped for this environment", "path", fp)
	default:
		p.logger.Warn("invalid feature manifest", "path", fp, "error", err)
	}
	return nil
}

// ParseReader decodes a feature manifest read from r. source is the URL r
// was opened from and determines the entry's URL.
func (p *FeatureParser) ParseReader(r io.Reader, source *url.URL) (*FeatureEntry, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, ErrNoFeatureElement
		}
		if err != nil {
			return nil, errors.Wrap(err, "decoding feature manifest")
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !strings.EqualFold(start.Name.Local, "feature") {
			continue
		}
		return p.featureFromElement(start, source)
	}
}

func (p *FeatureParser) featureFromElement(start xml.StartElement, source *url.URL) (*FeatureEntry, error) {
	attr := func(name string) string {
		for _, a := range start.Attr {
			if strings.EqualFold(a.Name.Local, name) {
				return strings.TrimSpace(a.Value)
			}
		}
		return ""
	}

	id, version := attr("id"), attr("version")
	if id == "" || version == "" {
		return nil, errors.Wrapf(ErrInvalidFeature, "id=%q version=%q", id, version)
	}

	if !p.env.Matches(attr("os"), attr("ws"), attr("arch"), attr("nl")) {
		return nil, errors.Wrapf(ErrEnvironmentMismatch, "%s_%s", id, version)
	}

	return NewFeatureEntry(FeatureSpec{
		ID:               id,
		Version:          version,
		PluginIdentifier: attr("plugin"),
		Application:      attr("application"),
		Primary:          strings.EqualFold(attr("primary"), "true"),
		URL:              p.entryURL(source),
	})
}

// entryURL is features/<dir>/ for local manifests, otherwise the source
// made absolute against the install location.
func (p *FeatureParser) entryURL(source *url.URL) string {
	if source == nil {
		return ""
	}
	if urlutil.IsFile(source) {
		dir := path.Dir(strings.ReplaceAll(source.Path, `\`, "/"))
		return "features/" + path.Base(dir) + "/"
	}
	return urlutil.MakeAbsolute(p.install, source).String()
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, errors.Wrapf(err, "unsupported charset %q", label)
	}
	if enc == nil {
		return input, nil
	}
	return enc.NewDecoder().Reader(input), nil
}
