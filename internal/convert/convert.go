// Package convert maps raw Moodle attributes onto LOM-structured metadata
// for the three convertible resource kinds (file, unit, course).
//
// Dispatch is an explicit static table from attribute name to handler:
// every top-level attribute of the element (and, for unit/course kinds,
// of the course entry) is visited, and an attribute with no table entry
// is a hard error. That strictness exists to surface schema drift the
// moment the export format grows a field, instead of silently dropping
// it. Attributes that intentionally contribute nothing carry a nil
// handler.
package convert

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
	"github.com/oergraz/moodle-lom-go/internal/filecache"
	"github.com/oergraz/moodle-lom-go/internal/lom"
	"github.com/oergraz/moodle-lom-go/internal/moodle"
)

// learningResourceTypeByResourceType maps Moodle resource types onto the
// controlled learning-resource-type vocabulary.
// https://skohub.io/dini-ag-kim/hcrt/heads/master/w3id.org/kim/hcrt/slide.en.html
var learningResourceTypeByResourceType = map[string]string{
	"No selection":      "",
	"Presentationslide": "slide",
	"Exercise":          "assessment",
}

type elementHandler func(doc *lom.Document, el moodle.Element, cache *filecache.Cache) error

type courseHandler func(doc *lom.Document, el moodle.Element, course moodle.Course) error

// File converts a file (or link) element's attributes onto doc.
func File(doc *lom.Document, el moodle.Element, cache *filecache.Cache) error {
	return visitElement("file", fileElementHandlers, doc, el, cache)
}

// Unit converts the term-scoped unit view of an element and its course
// entry onto doc.
func Unit(doc *lom.Document, el moodle.Element, course moodle.Course) error {
	if err := visitElement("unit", unitElementHandlers, doc, el, nil); err != nil {
		return err
	}
	return visitCourse("unit", unitCourseHandlers, doc, el, course)
}

// Course converts the term-independent course view of an element and its
// course entry onto doc.
func Course(doc *lom.Document, el moodle.Element, course moodle.Course) error {
	if err := visitElement("course", courseElementHandlers, doc, el, nil); err != nil {
		return err
	}
	return visitCourse("course", courseCourseHandlers, doc, el, course)
}

func visitElement(kind string, handlers map[string]elementHandler, doc *lom.Document, el moodle.Element, cache *filecache.Cache) error {
	for _, attr := range sortedKeys(el) {
		handler, ok := handlers[attr]
		if !ok {
			return domerrors.NewConversionError(kind, attr)
		}
		if handler == nil {
			continue
		}
		if err := handler(doc, el, cache); err != nil {
			return fmt.Errorf("%s attribute %q: %w", kind, attr, err)
		}
	}
	return nil
}

func visitCourse(kind string, handlers map[string]courseHandler, doc *lom.Document, el moodle.Element, course moodle.Course) error {
	for _, attr := range sortedKeys(course) {
		handler, ok := handlers[attr]
		if !ok {
			return domerrors.NewConversionError(kind, attr)
		}
		if handler == nil {
			continue
		}
		if err := handler(doc, el, course); err != nil {
			return fmt.Errorf("%s course attribute %q: %w", kind, attr, err)
		}
	}
	return nil
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- file handlers ---

var fileElementHandlers = map[string]elementHandler{
	"abstract":         convertAbstract,
	"classification":   convertClassification,
	"contenthash":      nil,
	"context":          nil,
	"courses":          nil,
	"duration":         nil,
	"filecreationtime": nil,
	"filesize":         convertFilesize,
	"fileurl":          nil,
	"language":         convertLanguage,
	"license":          convertLicense,
	"mimetype":         convertMimetype,
	"persons":          convertPersons,
	"resourcetype":     convertResourceType,
	"semester":         nil,
	"source":           nil,
	"tags":             convertTags,
	"timereleased":     convertTimeReleased,
	"title":            convertTitle,
	"year":             nil,
}

func convertTitle(doc *lom.Document, el moodle.Element, cache *filecache.Cache) error {
	language, err := el.String("language")
	if err != nil {
		return err
	}
	title, err := el.String("title")
	if err != nil {
		return err
	}

	if title == "" {
		// fall back to the resolved filename of the cached file,
		// or the element URL for link-only resources
		title = el.URL()
		if cache != nil {
			if info, ok := cache.Get(el.URL()); ok {
				title = info.Filename()
			}
		}
	}

	doc.SetTitle(title, language)
	return nil
}

func convertLanguage(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	language, err := el.String("language")
	if err != nil {
		return err
	}
	doc.AppendLanguage(language)
	return nil
}

func convertAbstract(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	abstract, err := el.String("abstract")
	if err != nil {
		return err
	}
	language, err := el.String("language")
	if err != nil {
		return err
	}
	doc.AppendDescription(html.UnescapeString(abstract), language)
	return nil
}

func convertTags(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	language, err := el.String("language")
	if err != nil {
		return err
	}
	raw, _ := el["tags"].([]any)
	for _, entry := range raw {
		tag, _ := entry.(string)
		doc.AppendKeyword(tag, language)
	}
	return nil
}

func convertPersons(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	raw, _ := el["persons"].([]any)
	for _, entry := range raw {
		person, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		firstname, _ := person["firstname"].(string)
		lastname, _ := person["lastname"].(string)
		role, _ := person["role"].(string)

		name := strings.TrimSpace(firstname + " " + lastname)
		doc.AppendContribute(name, role)
	}
	return nil
}

func convertTimeReleased(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	raw, err := el.String("timereleased")
	if err != nil {
		return err
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("timereleased %q is not epoch seconds: %w", raw, err)
	}
	doc.SetDatetime(time.Unix(seconds, 0).UTC().Format("2006-01-02"))
	return nil
}

func convertMimetype(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	mimetype, err := el.String("mimetype")
	if err != nil {
		return err
	}
	doc.AppendFormat(mimetype)
	return nil
}

func convertFilesize(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	filesize, err := el.String("filesize")
	if err != nil {
		return err
	}
	doc.SetSize(filesize)
	return nil
}

func convertResourceType(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	resourcetype, err := el.String("resourcetype")
	if err != nil {
		return err
	}
	// unmapped values contribute nothing
	doc.AppendLearningResourceType(learningResourceTypeByResourceType[resourcetype])
	return nil
}

func convertLicense(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	license, ok := el["license"].(map[string]any)
	if !ok {
		return nil
	}
	source, _ := license["source"].(string)
	if source != "" {
		doc.SetRightsURL(source)
	}
	return nil
}

func convertClassification(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	blocks, _ := el["classification"].([]any)

	var ids []string
	for _, entry := range blocks {
		block, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		values, _ := block["values"].([]any)
		for _, v := range values {
			value, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if id, _ := value["identifier"].(string); id != "" {
				ids = append(ids, id)
			}
		}
	}

	SortOefosIDs(ids)
	for _, id := range ids {
		doc.AppendOefosID(id, "")
		doc.AppendOefosID(id, "en")
	}
	return nil
}

// SortOefosIDs orders OEFOS codes by right-padded lexicographic key: each
// id is padded to width 6 with the maximum byte before comparison, so
// broader codes sort directly behind their most specific descendants,
// e.g. [2345 234 123 1234 2] -> [1234 123 2345 234 2].
func SortOefosIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return oefosSortKey(ids[i]) < oefosSortKey(ids[j])
	})
}

func oefosSortKey(id string) string {
	for len(id) < 6 {
		id += "\xff"
	}
	return id
}

// --- unit handlers ---

var unitElementHandlers = map[string]elementHandler{
	"abstract":         nil,
	"classification":   nil,
	"contenthash":      nil,
	"context":          nil,
	"courses":          nil,
	"duration":         nil,
	"filecreationtime": nil,
	"filesize":         nil,
	"fileurl":          nil,
	"language":         nil,
	"license":          nil,
	"mimetype":         nil,
	"persons":          nil,
	"resourcetype":     nil,
	"semester":         convertUnitSemester,
	"source":           nil,
	"tags":             nil,
	"timereleased":     nil,
	"title":            nil,
	"year":             convertUnitYear,
}

func convertUnitSemester(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	semester, err := el.String("semester")
	if err != nil {
		return err
	}
	year, err := el.String("year")
	if err != nil {
		return err
	}

	doc.AppendKeyword(semester, lom.LangNone)
	doc.SetVersion(semester+" "+year, year)
	return nil
}

func convertUnitYear(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	year, err := el.String("year")
	if err != nil {
		return err
	}
	doc.SetDatetime(year)
	return nil
}

var unitCourseHandlers = map[string]courseHandler{
	"courseid":       nil,
	"courselanguage": convertUnitCourseLanguage,
	"coursename":     convertUnitTitle,
	"description":    convertUnitDescription,
	"identifier":     nil,
	"lecturer":       convertUnitLecturer,
	"objective":      convertUnitObjective,
	"organisation":   convertUnitOrganisation,
	"sourceid":       nil,
	"structure":      nil,
}

func convertUnitTitle(doc *lom.Document, el moodle.Element, course moodle.Course) error {
	coursename, err := course.String("coursename")
	if err != nil {
		return err
	}
	semester, err := el.String("semester")
	if err != nil {
		return err
	}
	year, err := el.String("year")
	if err != nil {
		return err
	}

	doc.SetTitle(fmt.Sprintf("%s (%s %s)", coursename, semester, year), lom.LangNone)
	return nil
}

func convertUnitCourseLanguage(doc *lom.Document, _ moodle.Element, course moodle.Course) error {
	language, err := course.String("courselanguage")
	if err != nil {
		return err
	}
	doc.AppendLanguage(language)
	return nil
}

func convertUnitDescription(doc *lom.Document, _ moodle.Element, course moodle.Course) error {
	description, err := course.String("description")
	if err != nil {
		return err
	}
	doc.AppendDescription(html.UnescapeString(description), lom.LangNone)
	return nil
}

func convertUnitLecturer(doc *lom.Document, _ moodle.Element, course moodle.Course) error {
	lecturer, err := course.String("lecturer")
	if err != nil {
		return err
	}
	for _, name := range strings.Split(lecturer, ",") {
		doc.AppendContribute(strings.TrimSpace(name), "Author")
	}
	return nil
}

func convertUnitOrganisation(doc *lom.Document, _ moodle.Element, course moodle.Course) error {
	organisation, err := course.String("organisation")
	if err != nil {
		return err
	}
	doc.AppendContribute(organisation, "Unknown")
	return nil
}

func convertUnitObjective(doc *lom.Document, _ moodle.Element, course moodle.Course) error {
	objective, err := course.String("objective")
	if err != nil {
		return err
	}
	doc.AppendEducationalDescription(html.UnescapeString(objective), lom.LangNone)
	return nil
}

// --- course handlers ---

var courseElementHandlers = map[string]elementHandler{
	"abstract":         nil,
	"classification":   nil,
	"contenthash":      nil,
	"context":          convertCourseContext,
	"courses":          nil,
	"duration":         nil,
	"filecreationtime": nil,
	"filesize":         nil,
	"fileurl":          nil,
	"language":         nil,
	"license":          nil,
	"mimetype":         nil,
	"persons":          nil,
	"resourcetype":     nil,
	"semester":         nil,
	"source":           nil,
	"tags":             nil,
	"timereleased":     nil,
	"title":            nil,
	"year":             nil,
}

func convertCourseContext(doc *lom.Document, el moodle.Element, _ *filecache.Cache) error {
	context, err := el.String("context")
	if err != nil {
		return err
	}
	doc.AppendContext(context)
	return nil
}

var courseCourseHandlers = map[string]courseHandler{
	"courseid":       convertCourseID,
	"courselanguage": nil,
	"coursename":     convertCourseName,
	"description":    nil,
	"identifier":     convertCourseIdentifier,
	"lecturer":       nil,
	"objective":      nil,
	"organisation":   nil,
	"sourceid":       nil,
	"structure":      convertCourseStructure,
}

func convertCourseID(doc *lom.Document, _ moodle.Element, course moodle.Course) error {
	courseid, err := course.String("courseid")
	if err != nil {
		return err
	}
	doc.AppendIdentifier(courseid, "moodle-id")
	return nil
}

func convertCourseIdentifier(doc *lom.Document, _ moodle.Element, course moodle.Course) error {
	identifier, err := course.String("identifier")
	if err != nil {
		return err
	}
	doc.AppendIdentifier(identifier, "teachcenter-course-id")
	return nil
}

func convertCourseName(doc *lom.Document, _ moodle.Element, course moodle.Course) error {
	coursename, err := course.String("coursename")
	if err != nil {
		return err
	}
	doc.SetTitle(coursename, lom.LangNone)
	return nil
}

func convertCourseStructure(doc *lom.Document, _ moodle.Element, course moodle.Course) error {
	structure, err := course.String("structure")
	if err != nil {
		return err
	}
	doc.AppendKeyword(structure, lom.LangNone)
	return nil
}
