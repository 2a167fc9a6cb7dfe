package convert

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Family groups source MIME types that share one conversion branch.
type Family string

const (
	FamilyImage        Family = "image"
	FamilyPDF          Family = "pdf"
	FamilyWord         Family = "word"
	FamilySpreadsheet  Family = "spreadsheet"
	FamilyPresentation Family = "presentation"
	FamilyAudio        Family = "audio"
	FamilyVideo        Family = "video"
	FamilyText         Family = "text"
	FamilyMarkdown     Family = "markdown"
	FamilyHTML         Family = "html"
	FamilyEPUB         Family = "epub"
)

// SourceFormat describes an accepted input MIME type.
type SourceFormat struct {
	Family    Family `yaml:"family" json:"family"`
	Extension string `yaml:"extension" json:"extension"`
}

// TargetFormat describes an output format tag.
type TargetFormat struct {
	Extension string `yaml:"extension" json:"extension"`
	MimeType  string `yaml:"mimeType" json:"mimeType"`
}

// FormatTable is the routing data of the dispatcher: which MIME types are
// accepted, which family handles them and which targets each family offers.
type FormatTable struct {
	Sources  map[string]SourceFormat `yaml:"sources" json:"sources"`
	Families map[Family][]string     `yaml:"families" json:"families"`
	Targets  map[string]TargetFormat `yaml:"targets" json:"targets"`
}

const (
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeODT  = "application/vnd.oasis.opendocument.text"
	mimeODS  = "application/vnd.oasis.opendocument.spreadsheet"
	mimeODP  = "application/vnd.oasis.opendocument.presentation"
	mimeEPUB = "application/epub+zip"
	mimeCSV  = "text/csv"
)

// DefaultFormatTable returns the built-in routing table.
func DefaultFormatTable() *FormatTable {
	return &FormatTable{
		Sources: map[string]SourceFormat{
			"image/png":      {FamilyImage, "png"},
			"image/jpeg":     {FamilyImage, "jpg"},
			"image/jpg":      {FamilyImage, "jpg"},
			"image/pjpeg":    {FamilyImage, "jpg"},
			"image/gif":      {FamilyImage, "gif"},
			"image/bmp":      {FamilyImage, "bmp"},
			"image/x-ms-bmp": {FamilyImage, "bmp"},
			"image/tiff":     {FamilyImage, "tiff"},
			"image/webp":     {FamilyImage, "webp"},

			"application/pdf": {FamilyPDF, "pdf"},

			mimeDocx:             {FamilyWord, "docx"},
			"application/msword": {FamilyWord, "doc"},
			mimeODT:              {FamilyWord, "odt"},
			"application/rtf":    {FamilyWord, "rtf"},
			"text/rtf":           {FamilyWord, "rtf"},

			mimeXlsx:                      {FamilySpreadsheet, "xlsx"},
			"application/vnd.ms-excel":    {FamilySpreadsheet, "xls"},
			mimeODS:                       {FamilySpreadsheet, "ods"},
			mimeCSV:                       {FamilySpreadsheet, "csv"},
			"application/csv":             {FamilySpreadsheet, "csv"},
			"text/comma-separated-values": {FamilySpreadsheet, "csv"},

			mimePptx:                        {FamilyPresentation, "pptx"},
			"application/vnd.ms-powerpoint": {FamilyPresentation, "ppt"},
			mimeODP:                         {FamilyPresentation, "odp"},

			"audio/mpeg":   {FamilyAudio, "mp3"},
			"audio/mp3":    {FamilyAudio, "mp3"},
			"audio/wav":    {FamilyAudio, "wav"},
			"audio/x-wav":  {FamilyAudio, "wav"},
			"audio/wave":   {FamilyAudio, "wav"},
			"audio/ogg":    {FamilyAudio, "ogg"},
			"audio/flac":   {FamilyAudio, "flac"},
			"audio/x-flac": {FamilyAudio, "flac"},
			"audio/aac":    {FamilyAudio, "aac"},
			"audio/mp4":    {FamilyAudio, "m4a"},
			"audio/x-m4a":  {FamilyAudio, "m4a"},
			"audio/webm":   {FamilyAudio, "webm"},

			"video/mp4":        {FamilyVideo, "mp4"},
			"video/webm":       {FamilyVideo, "webm"},
			"video/quicktime":  {FamilyVideo, "mov"},
			"video/x-msvideo":  {FamilyVideo, "avi"},
			"video/avi":        {FamilyVideo, "avi"},
			"video/x-matroska": {FamilyVideo, "mkv"},
			"video/mpeg":       {FamilyVideo, "mpeg"},
			"video/ogg":        {FamilyVideo, "ogv"},

			"text/plain":            {FamilyText, "txt"},
			"text/markdown":         {FamilyMarkdown, "md"},
			"text/x-markdown":       {FamilyMarkdown, "md"},
			"text/html":             {FamilyHTML, "html"},
			"application/xhtml+xml": {FamilyHTML, "xhtml"},

			mimeEPUB: {FamilyEPUB, "epub"},
		},
		Families: map[Family][]string{
			FamilyImage:        {"png", "jpg", "jpeg", "gif", "bmp", "tiff", "pdf"},
			FamilyPDF:          {"txt", "md", "html", "pdf"},
			FamilyWord:         {"txt", "md", "html", "pdf", "docx", "odt", "rtf"},
			FamilySpreadsheet:  {"xlsx", "csv", "json", "html", "txt"},
			FamilyPresentation: {"pdf", "pptx", "ppt", "odp"},
			FamilyAudio:        {"mp3", "wav", "ogg", "flac", "aac", "m4a"},
			FamilyVideo:        {"mp4", "webm", "mov", "avi", "mkv", "gif", "mp3", "wav"},
			FamilyText:         {"txt", "md", "html", "pdf", "epub"},
			FamilyMarkdown:     {"txt", "md", "pdf", "epub"},
			FamilyHTML:         {"txt", "md", "pdf", "epub"},
			FamilyEPUB:         {"txt", "pdf"},
		},
		Targets: map[string]TargetFormat{
			"png":  {"png", "image/png"},
			"jpg":  {"jpg", "image/jpeg"},
			"jpeg": {"jpeg", "image/jpeg"},
			"gif":  {"gif", "image/gif"},
			"bmp":  {"bmp", "image/bmp"},
			"tiff": {"tiff", "image/tiff"},
			"pdf":  {"pdf", "application/pdf"},
			"txt":  {"txt", "text/plain"},
			"md":   {"md", "text/markdown"},
			"html": {"html", "text/html"},
			"docx": {"docx", mimeDocx},
			"odt":  {"odt", mimeODT},
			"rtf":  {"rtf", "application/rtf"},
			"xlsx": {"xlsx", mimeXlsx},
			"csv":  {"csv", mimeCSV},
			"json": {"json", "application/json"},
			"pptx": {"pptx", mimePptx},
			"ppt":  {"ppt", "application/vnd.ms-powerpoint"},
			"odp":  {"odp", mimeODP},
			"mp3":  {"mp3", "audio/mpeg"},
			"wav":  {"wav", "audio/wav"},
			"ogg":  {"ogg", "audio/ogg"},
			"flac": {"flac", "audio/flac"},
			"aac":  {"aac", "audio/aac"},
			"m4a":  {"m4a", "audio/mp4"},
			"mp4":  {"mp4", "video/mp4"},
			"webm": {"webm", "video/webm"},
			"mov":  {"mov", "video/quicktime"},
			"avi":  {"avi", "video/x-msvideo"},
			"mkv":  {"mkv", "video/x-matroska"},
			"epub": {"epub", mimeEPUB},
		},
	}
}

// LoadFormatTable reads a YAML table from path. Sections present in the file
// replace the corresponding built-in sections; absent sections keep the
// defaults.
func LoadFormatTable(path string) (*FormatTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read format table: %w", err)
	}
	return ParseFormatTable(data)
}

// ParseFormatTable decodes a YAML table on top of the defaults.
func ParseFormatTable(data []byte) (*FormatTable, error) {
	var override FormatTable
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse format table: %w", err)
	}

	table := DefaultFormatTable()
	if len(override.Sources) > 0 {
		table.Sources = override.Sources
	}
	if len(override.Families) > 0 {
		table.Families = override.Families
	}
	if len(override.Targets) > 0 {
		table.Targets = override.Targets
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Validate checks that every family target has a target definition and
// every source points at a known family.
func (t *FormatTable) Validate() error {
	for mimeType, src := range t.Sources {
		if _, ok := t.Families[src.Family]; !ok {
			return fmt.Errorf("format table: source %s uses unknown family %q", mimeType, src.Family)
		}
	}
	for family, targets := range t.Families {
		for _, target := range targets {
			if _, ok := t.Targets[target]; !ok {
				return fmt.Errorf("format table: family %s lists undefined target %q", family, target)
			}
		}
	}
	return nil
}

// Source returns the source entry for a normalised MIME type.
func (t *FormatTable) Source(mimeType string) (SourceFormat, bool) {
	src, ok := t.Sources[mimeType]
	return src, ok
}

// Target returns the definition of a target tag.
func (t *FormatTable) Target(tag string) (TargetFormat, bool) {
	target, ok := t.Targets[tag]
	return target, ok
}

// Supports reports whether family can produce target.
func (t *FormatTable) Supports(family Family, target string) bool {
	return slices.Contains(t.Families[family], target)
}

// TargetsFor returns the targets offered for family.
func (t *FormatTable) TargetsFor(family Family) []string {
	return slices.Clone(t.Families[family])
}

var extensionAliases = map[string]string{
	"jpeg":     "jpg",
	"tif":      "tiff",
	"htm":      "html",
	"markdown": "md",
	"text":     "txt",
}

// preferredExtensionMime settles extensions shared by several MIME types.
var preferredExtensionMime = map[string]string{
	"txt":  "text/plain",
	"csv":  mimeCSV,
	"webm": "video/webm",
	"rtf":  "application/rtf",
}

// MimeForExtension maps a file extension to a source MIME type of the table.
// Shared extensions resolve through preferredExtensionMime, otherwise the
// lexically first MIME type wins.
func (t *FormatTable) MimeForExtension(ext string) (string, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if alias, ok := extensionAliases[ext]; ok {
		ext = alias
	}
	if ext == "" {
		return "", false
	}
	if preferred, ok := preferredExtensionMime[ext]; ok {
		if _, known := t.Sources[preferred]; known {
			return preferred, true
		}
	}

	var candidates []string
	for mimeType, src := range t.Sources {
		if src.Extension == ext {
			candidates = append(candidates, mimeType)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return candidates[0], true
}

// FamilySummary is the public view of one family.
type FamilySummary struct {
	Family    Family   `json:"family"`
	MimeTypes []string `json:"mimeTypes"`
	Targets   []string `json:"targets"`
}

// Summary lists families with their accepted MIME types and targets, sorted
// by family name.
func (t *FormatTable) Summary() []FamilySummary {
	byFamily := make(map[Family][]string)
	for mimeType, src := range t.Sources {
		byFamily[src.Family] = append(byFamily[src.Family], mimeType)
	}

	out := make([]FamilySummary, 0, len(t.Families))
	for family, targets := range t.Families {
		mimes := byFamily[family]
		sort.Strings(mimes)
		out = append(out, FamilySummary{
			Family:    family,
			MimeTypes: mimes,
			Targets:   slices.Clone(targets),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Family < out[j].Family })
	return out
}
