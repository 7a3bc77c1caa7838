// Package tagreader supplies raw tag data per file for scan passes.
package tagreader
