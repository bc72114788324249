package configurator

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/platconf/internal/urlutil"
)

// FormatVersion is written to the version attribute of <config>.
const FormatVersion = "3.0"

// ErrInvalidConfig indicates a platform.xml document could not be read.
var ErrInvalidConfig = errors.New("invalid platform configuration")

type xmlConfig struct {
	XMLName   xml.Name  `xml:"config"`
	Date      string    `xml:"date,attr,omitempty"`
	Transient string    `xml:"transient,attr,omitempty"`
	Version   string    `xml:"version,attr,omitempty"`
	SharedURL string    `xml:"shared_ur,attr,omitempty"`
	Sites     []xmlSite `xml:"site"`
}

type xmlSite struct {
	URL        string       `xml:"url,attr"`
	Policy     string       `xml:"policy,attr,omitempty"`
	List       string       `xml:"list,attr,omitempty"`
	Updateable string       `xml:"updateable,attr,omitempty"`
	Enabled    string       `xml:"enabled,attr,omitempty"`
	LinkFile   string       `xml:"linkfile,attr,omitempty"`
	Features   []xmlFeature `xml:"feature"`
}

type xmlFeature struct {
	ID               string    `xml:"id,attr"`
	Version          string    `xml:"version,attr,omitempty"`
	URL              string    `xml:"url,attr,omitempty"`
	PluginIdentifier string    `xml:"plugin-identifier,attr,omitempty"`
	PluginVersion    string    `xml:"plugin-version,attr,omitempty"`
	Application      string    `xml:"application,attr,omitempty"`
	Primary          string    `xml:"primary,attr,omitempty"`
	Roots            []xmlRoot `xml:"root"`
}

type xmlRoot struct {
	URL string `xml:"url,attr"`
}

// Read decodes a platform.xml document. Options are applied before any
// site is added, so WithURL and WithInstallURL determine how platform:
// sites resolve. Malformed sites and features are skipped with a warning;
// a document that cannot be decoded at all is an ErrInvalidConfig.
func Read(r io.Reader, opts ...Option) (*Configuration, error) {
	var doc xmlConfig
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding platform configuration"), ErrInvalidConfig)
	}

	if doc.Date != "" {
		ms, err := strconv.ParseInt(strings.TrimSpace(doc.Date), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "bad date %q", doc.Date)
		}
		opts = append(opts, WithDate(time.UnixMilli(ms)))
	}

	c := New(opts...)
	c.transient = parseBool(doc.Transient, false)
	c.sharedURL = strings.TrimSpace(doc.SharedURL)

	for _, xs := range doc.Sites {
		c.readSite(xs)
	}
	return c, nil
}

func (c *Configuration) readSite(xs xmlSite) {
	u, err := urlutil.Parse(xs.URL)
	if err != nil {
		c.logger.Warn("skipping site with invalid url", "url", xs.URL, "error", err)
		return
	}

	policy := DefaultPolicy()
	if xs.Policy != "" {
		if policy, err = ParseSitePolicy(xs.Policy, xs.List); err != nil {
			c.logger.Warn("unknown site policy", "url", xs.URL, "policy", xs.Policy)
			policy = DefaultPolicy()
		}
	}

	site := NewSiteEntry(u, policy)
	site.SetUpdateable(parseBool(xs.Updateable, true))
	site.SetEnabled(parseBool(xs.Enabled, true))
	site.SetLinkFileName(xs.LinkFile)
	// Sites without <feature> children are detected on first use.
	if len(xs.Features) > 0 {
		site.Initialized()
	}
	if !c.AddSiteEntry(u.String(), site) {
		c.logger.Warn("duplicate site", "url", xs.URL)
		return
	}

	for _, xf := range xs.Features {
		spec := FeatureSpec{
			ID:               xf.ID,
			Version:          xf.Version,
			PluginIdentifier: xf.PluginIdentifier,
			PluginVersion:    xf.PluginVersion,
			Application:      xf.Application,
			Primary:          parseBool(xf.Primary, false),
			URL:              xf.URL,
		}
		for _, xr := range xf.Roots {
			root, err := urlutil.Parse(xr.URL)
			if err != nil {
				c.logger.Warn("skipping invalid feature root", "feature", xf.ID, "url", xr.URL)
				continue
			}
			spec.Roots = append(spec.Roots, root)
		}

		f, err := NewFeatureEntry(spec)
		if err != nil {
			c.logger.Warn("skipping feature", "site", xs.URL, "error", err)
			continue
		}
		site.AddFeatureEntry(f)
	}
}

// Write encodes the local sites of c as a platform.xml document. File
// URLs that were resolved from platform: URLs are written back in their
// symbolic form.
func (c *Configuration) Write(w io.Writer) error {
	doc := xmlConfig{
		Date:      strconv.FormatInt(c.Date().UnixMilli(), 10),
		Version:   FormatVersion,
		SharedURL: c.SharedURL(),
	}
	if c.IsTransient() {
		doc.Transient = "true"
	}

	for _, s := range c.LocalSites() {
		doc.Sites = append(doc.Sites, c.writeSite(s))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "writing platform configuration")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding platform configuration")
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return errors.Wrap(err, "writing platform configuration")
	}
	return nil
}

func (c *Configuration) writeSite(s *SiteEntry) xmlSite {
	policy := s.Policy()
	xs := xmlSite{
		URL:      c.AsPlatformURL(s.URL()).String(),
		Policy:   policy.Type().String(),
		List:     policy.ListString(),
		LinkFile: s.LinkFileName(),
	}
	if !s.IsUpdateable() {
		xs.Updateable = "false"
	}
	if !s.IsEnabled() {
		xs.Enabled = "false"
	}

	for _, f := range s.FeatureEntries() {
		xf := xmlFeature{
			ID:          f.ID(),
			Version:     f.Version(),
			URL:         f.URL(),
			Application: f.Application(),
		}
		if f.PluginIdentifier() != f.ID() {
			xf.PluginIdentifier = f.PluginIdentifier()
		}
		if f.PluginVersion() != f.Version() {
			xf.PluginVersion = f.PluginVersion()
		}
		if f.Primary() {
			xf.Primary = "true"
		}
		for _, r := range f.Roots() {
			xf.Roots = append(xf.Roots, xmlRoot{URL: c.AsPlatformURL(r).String()})
		}
		xs.Features = append(xs.Features, xf)
	}
	return xs
}

func parseBool(s string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}
