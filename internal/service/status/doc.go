// Package status reports what is installed and whether the server is running.
package status
