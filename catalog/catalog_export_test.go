package catalog

var Overlaps = overlaps
var Date = date
