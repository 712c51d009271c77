package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/microcosm-cc/bluemonday"
	"net/http"
)

// Offer ids and color descriptors come from untrusted peers and are
// echoed back to the UI. Nothing we serve should carry markup.
var sanitizer = bluemonday.StrictPolicy()

func sanitizedStringResponse(w http.ResponseWriter, response string) {
	writeSanitized(w, []byte(response))
}

func sanitizedJSONResponse(w http.ResponseWriter, i interface{}) {
	out, err := json.Marshal(i)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeSanitized(w, out)
}

func writeSanitized(w http.ResponseWriter, out []byte) {
	ret, err := sanitizeJSON(out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, string(ret))
}

func marshalAndSanitizeJSON(i interface{}) ([]byte, error) {
	out, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return sanitizeJSON(out)
}

// sanitizeJSON strips markup from every string in the document,
// object keys included, and drops null members. Numbers keep their
// exact representation so large amounts survive the round trip.
func sanitizeJSON(s []byte) ([]byte, error) {
	d := json.NewDecoder(bytes.NewReader(s))
	d.UseNumber()

	var i interface{}
	if err := d.Decode(&i); err != nil {
		return nil, err
	}
	return json.MarshalIndent(sanitize(i), "", "    ")
}

func sanitize(data interface{}) interface{} {
	switch d := data.(type) {
	case string:
		return sanitizer.Sanitize(d)
	case map[string]interface{}:
		clean := make(map[string]interface{}, len(d))
		for k, v := range d {
			if v == nil {
				continue
			}
			clean[sanitizer.Sanitize(k)] = sanitize(v)
		}
		return clean
	case []interface{}:
		for i, v := range d {
			d[i] = sanitize(v)
		}
		return d
	default:
		return d
	}
}
