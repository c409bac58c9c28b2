// Package textutil holds small string helpers shared by the stages.
package textutil
