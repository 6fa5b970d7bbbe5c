/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

const defaultWebpage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Short URL</title>
</head>
<body>
<form id="add">
<input id="url" type="url" placeholder="https://" size="60" required>
<button type="submit">Shorten</button>
</form>
<p id="result"></p>
<script>
document.getElementById('add').addEventListener('submit', function (e) {
  e.preventDefault();
  fetch('/add', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({url: document.getElementById('url').value})
  }).then(function (r) { return r.json(); }).then(function (r) {
    var out = document.getElementById('result');
    out.textContent = r.data ? location.origin + '/j/' + r.data : r.msg;
  });
});
</script>
</body>
</html>
`
