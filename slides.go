package docconv

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// 16:9 slide canvas in EMU (13.333 x 7.5 in).
const (
	slideWidthEMU  = 12192000
	slideHeightEMU = 6858000
)

// slideCanvas is the slide size in EMU.
var slideCanvas = Size{W: slideWidthEMU, H: slideHeightEMU}

// slideDeck writes a .pptx with one centered picture per blank slide. Media
// is streamed into a temporary file next to the destination, which is
// renamed into place by Close.
type slideDeck struct {
	path string
	file *os.File
	zw   *zip.Writer

	slides []slidePicture
}

// slidePicture is one slide's picture part and placement in EMU.
type slidePicture struct {
	N     int
	Media string
	X, Y  int64
	W, H  int64
}

// createSlideDeck starts a deck that will be written to path.
func createSlideDeck(path string) (*slideDeck, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return nil, fmt.Errorf("creating presentation: %w", err)
	}
	return &slideDeck{path: path, file: f, zw: zip.NewWriter(f)}, nil
}

// Slides returns the number of slides added so far.
func (d *slideDeck) Slides() int {
	return len(d.slides)
}

// AddImage appends a slide showing img, measured at dpi and fitted to the
// slide. Transparency is flattened over white. A jpegQuality of zero embeds
// the picture losslessly as PNG.
func (d *slideDeck) AddImage(img image.Image, dpi float64, jpegQuality int) error {
	flat := FlattenRGB(img)
	place, err := Fit(PixelSize(flat.Bounds(), EMUPerInch, dpi), slideCanvas)
	if err != nil {
		return err
	}

	n := len(d.slides) + 1
	media := fmt.Sprintf("image%d.png", n)
	if jpegQuality > 0 {
		media = fmt.Sprintf("image%d.jpeg", n)
	}
	w, err := d.zw.Create("ppt/media/" + media)
	if err != nil {
		return fmt.Errorf("writing slide %d: %w", n, err)
	}
	if jpegQuality > 0 {
		err = jpeg.Encode(w, flat, &jpeg.Options{Quality: jpegQuality})
	} else {
		err = png.Encode(w, flat)
	}
	if err != nil {
		return fmt.Errorf("encoding slide %d: %w", n, err)
	}

	d.slides = append(d.slides, slidePicture{
		N:     n,
		Media: media,
		X:     int64(place.X),
		Y:     int64(place.Y),
		W:     int64(place.W),
		H:     int64(place.H),
	})
	return nil
}

// Close writes the package parts and moves the deck to its destination.
// A deck without slides is discarded with an error.
func (d *slideDeck) Close() error {
	if len(d.slides) == 0 {
		d.Abort()
		return fmt.Errorf("%w: presentation has no slides", ErrExternalOperation)
	}
	if err := d.writeParts(); err != nil {
		d.Abort()
		return err
	}
	if err := d.zw.Close(); err != nil {
		d.Abort()
		return fmt.Errorf("finishing presentation: %w", err)
	}
	tmp := d.file.Name()
	if err := d.file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finishing presentation: %w", err)
	}
	if err := os.Chmod(tmp, fileutil.FilePermissions); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finishing presentation: %w", err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", d.path, err)
	}
	return nil
}

// Abort discards the deck. Safe to call more than once.
func (d *slideDeck) Abort() {
	if d.file == nil {
		return
	}
	_ = d.file.Close()
	_ = os.Remove(d.file.Name())
	d.file = nil
}

func (d *slideDeck) writeParts() error {
	data := struct {
		Slides  []slidePicture
		Created string
	}{
		Slides:  d.slides,
		Created: time.Now().UTC().Format(time.RFC3339),
	}

	for _, part := range packageParts {
		var buf bytes.Buffer
		if err := part.tmpl.Execute(&buf, data); err != nil {
			return fmt.Errorf("rendering %s: %w", part.name, err)
		}
		if err := d.writePart(part.name, buf.Bytes()); err != nil {
			return err
		}
	}
	for _, s := range d.slides {
		for _, part := range slideParts {
			var buf bytes.Buffer
			if err := part.tmpl.Execute(&buf, s); err != nil {
				return fmt.Errorf("rendering slide %d: %w", s.N, err)
			}
			if err := d.writePart(fmt.Sprintf(part.name, s.N), buf.Bytes()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *slideDeck) writePart(name string, content []byte) error {
	w, err := d.zw.Create(name)
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if _, err := io.Copy(w, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Package parts
// ---------------------------------------------------------------------------

type pptxPart struct {
	name string
	tmpl *template.Template
}

func part(name, text string) pptxPart {
	return pptxPart{name: name, tmpl: template.Must(template.New(name).Funcs(template.FuncMap{
		"add": func(a, b int) int { return a + b },
	}).Parse(xmlHeader + text))}
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const (
	nsA = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`
	nsR = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	nsP = `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

	relNS     = `http://schemas.openxmlformats.org/package/2006/relationships`
	relType   = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/`
	ctPrefix  = `application/vnd.openxmlformats-officedocument.presentationml.`
	emptyTree = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`
)

// packageParts are written once per deck.
var packageParts = []pptxPart{
	part("[Content_Types].xml", `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`+
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`+
		`<Default Extension="xml" ContentType="application/xml"/>`+
		`<Default Extension="png" ContentType="image/png"/>`+
		`<Default Extension="jpeg" ContentType="image/jpeg"/>`+
		`<Override PartName="/ppt/presentation.xml" ContentType="`+ctPrefix+`presentation.main+xml"/>`+
		`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="`+ctPrefix+`slideMaster+xml"/>`+
		`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="`+ctPrefix+`slideLayout+xml"/>`+
		`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`+
		`{{range .Slides}}<Override PartName="/ppt/slides/slide{{.N}}.xml" ContentType="`+ctPrefix+`slide+xml"/>{{end}}`+
		`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`+
		`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`+
		`</Types>`),

	part("_rels/.rels", `<Relationships xmlns="`+relNS+`">`+
		`<Relationship Id="rId1" Type="`+relType+`officeDocument" Target="ppt/presentation.xml"/>`+
		`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>`+
		`<Relationship Id="rId3" Type="`+relType+`extended-properties" Target="docProps/app.xml"/>`+
		`</Relationships>`),

	part("docProps/core.xml", `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" `+
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" `+
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`+
		`<dc:creator>go-docconv</dc:creator>`+
		`<dcterms:created xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:created>`+
		`<dcterms:modified xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:modified>`+
		`</cp:coreProperties>`),

	part("docProps/app.xml", `<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">`+
		`<Application>go-docconv</Application><Slides>{{len .Slides}}</Slides>`+
		`</Properties>`),

	part("ppt/presentation.xml", `<p:presentation `+nsA+` `+nsR+` `+nsP+`>`+
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`+
		`<p:sldIdLst>{{range .Slides}}<p:sldId id="{{add .N 255}}" r:id="rId{{add .N 2}}"/>{{end}}</p:sldIdLst>`+
		`<p:sldSz cx="12192000" cy="6858000"/>`+
		`<p:notesSz cx="6858000" cy="9144000"/>`+
		`</p:presentation>`),

	part("ppt/_rels/presentation.xml.rels", `<Relationships xmlns="`+relNS+`">`+
		`<Relationship Id="rId1" Type="`+relType+`slideMaster" Target="slideMasters/slideMaster1.xml"/>`+
		`<Relationship Id="rId2" Type="`+relType+`theme" Target="theme/theme1.xml"/>`+
		`{{range .Slides}}<Relationship Id="rId{{add .N 2}}" Type="`+relType+`slide" Target="slides/slide{{.N}}.xml"/>{{end}}`+
		`</Relationships>`),

	part("ppt/slideMasters/slideMaster1.xml", `<p:sldMaster `+nsA+` `+nsR+` `+nsP+`>`+
		`<p:cSld><p:spTree>`+emptyTree+`</p:spTree></p:cSld>`+
		`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" `+
		`accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`+
		`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>`+
		`</p:sldMaster>`),

	part("ppt/slideMasters/_rels/slideMaster1.xml.rels", `<Relationships xmlns="`+relNS+`">`+
		`<Relationship Id="rId1" Type="`+relType+`slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`+
		`<Relationship Id="rId2" Type="`+relType+`theme" Target="../theme/theme1.xml"/>`+
		`</Relationships>`),

	part("ppt/slideLayouts/slideLayout1.xml", `<p:sldLayout `+nsA+` `+nsR+` `+nsP+` type="blank" preserve="1">`+
		`<p:cSld name="Blank"><p:spTree>`+emptyTree+`</p:spTree></p:cSld>`+
		`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`+
		`</p:sldLayout>`),

	part("ppt/slideLayouts/_rels/slideLayout1.xml.rels", `<Relationships xmlns="`+relNS+`">`+
		`<Relationship Id="rId1" Type="`+relType+`slideMaster" Target="../slideMasters/slideMaster1.xml"/>`+
		`</Relationships>`),

	part("ppt/theme/theme1.xml", `<a:theme `+nsA+` name="Office Theme"><a:themeElements>`+
		`<a:clrScheme name="Office">`+
		`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>`+
		`<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>`+
		`<a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>`+
		`<a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2>`+
		`<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4>`+
		`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6>`+
		`<a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink>`+
		`</a:clrScheme>`+
		`<a:fontScheme name="Office">`+
		`<a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>`+
		`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>`+
		`</a:fontScheme>`+
		`<a:fmtScheme name="Office">`+
		`<a:fillStyleLst>`+solidFill+solidFill+solidFill+`</a:fillStyleLst>`+
		`<a:lnStyleLst>`+line+line+line+`</a:lnStyleLst>`+
		`<a:effectStyleLst>`+effect+effect+effect+`</a:effectStyleLst>`+
		`<a:bgFillStyleLst>`+solidFill+solidFill+solidFill+`</a:bgFillStyleLst>`+
		`</a:fmtScheme>`+
		`</a:themeElements></a:theme>`),
}

const (
	solidFill = `<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>`
	line      = `<a:ln w="6350">` + solidFill + `</a:ln>`
	effect    = `<a:effectStyle><a:effectLst/></a:effectStyle>`
)

// slideParts are written once per slide; names take the slide number.
var slideParts = []pptxPart{
	part("ppt/slides/slide%d.xml", `<p:sld `+nsA+` `+nsR+` `+nsP+`>`+
		`<p:cSld><p:spTree>`+emptyTree+
		`<p:pic>`+
		`<p:nvPicPr><p:cNvPr id="2" name="Picture {{.N}}"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="{{.X}}" y="{{.Y}}"/><a:ext cx="{{.W}}" cy="{{.H}}"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
		`</p:pic>`+
		`</p:spTree></p:cSld>`+
		`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`+
		`</p:sld>`),

	part("ppt/slides/_rels/slide%d.xml.rels", `<Relationships xmlns="`+relNS+`">`+
		`<Relationship Id="rId1" Type="`+relType+`slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`+
		`<Relationship Id="rId2" Type="`+relType+`image" Target="../media/{{.Media}}"/>`+
		`</Relationships>`),
}
