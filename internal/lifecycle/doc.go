// Package lifecycle classifies customers into lifecycle segments.
//
// Classification is a waterfall: an ordered list of rules is evaluated and
// the first rule whose predicate holds decides the tag. A predicate that
// needs a field the customer does not have is simply false. Every customer
// gets a tag; when nothing matches the result is NEW.
//
// All thresholds are calendar dates derived from a single reference instant,
// so one Classifier gives consistent results for a whole run.
package lifecycle
